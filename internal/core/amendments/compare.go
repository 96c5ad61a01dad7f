package amendments

import (
	"context"
	"reflect"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
)

// ChangeKind tags a Change
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Change is one difference between an amendment and its previous version.
// Added carries To, Removed carries From, Modified carries both.
type Change struct {
	Kind ChangeKind  `json:"kind"`
	Key  string      `json:"key"`
	From interface{} `json:"from,omitempty"`
	To   interface{} `json:"to,omitempty"`
}

// Comparison groups the changes by what they touch
type Comparison struct {
	AmendmentID int64    `json:"amendment_contract_id"`
	PreviousID  int64    `json:"previous_contract_id"`
	Contract    []Change `json:"contract"`
	Terms       []Change `json:"terms"`
	Clauses     []Change `json:"clauses"`
}

// ContractView is the comparable projection of a contract row
type ContractView struct {
	ContractTitle         string
	ContractType          string
	Description           string
	Status                e.ContractStatus
	VendorID              *int64
	ContractValue         *float64
	Currency              string
	PaymentTerms          string
	GoverningLaw          string
	Jurisdiction          string
	StartDate             *time.Time
	EndDate               *time.Time
	RenewalNoticeDays     *int
	AutoRenew             bool
	TerminationNoticeDays *int
	InsuranceRequirements e.JSONMap
	DataProtectionClauses e.JSONMap
	DataInventory         e.JSONMap
}

// ViewOf projects c
func ViewOf(c *e.Contract) ContractView {
	return ContractView{
		ContractTitle:         c.ContractTitle,
		ContractType:          c.ContractType,
		Description:           c.Description,
		Status:                c.Status,
		VendorID:              c.VendorID,
		ContractValue:         c.ContractValue,
		Currency:              c.Currency,
		PaymentTerms:          c.PaymentTerms,
		GoverningLaw:          c.GoverningLaw,
		Jurisdiction:          c.Jurisdiction,
		StartDate:             c.StartDate,
		EndDate:               c.EndDate,
		RenewalNoticeDays:     c.RenewalNoticeDays,
		AutoRenew:             c.AutoRenew,
		TerminationNoticeDays: c.TerminationNotice,
		InsuranceRequirements: c.InsuranceRequirements,
		DataProtectionClauses: c.DataProtectionClauses,
		DataInventory:         c.DataInventory,
	}
}

// Field is one named value of a view
type Field struct {
	Name  string
	Value interface{}
}

// Fields enumerates the view in a fixed order
func (v ContractView) Fields() []Field {
	return []Field{
		{"contract_title", v.ContractTitle},
		{"contract_type", v.ContractType},
		{"description", v.Description},
		{"status", string(v.Status)},
		{"vendor_id", deref(v.VendorID)},
		{"contract_value", deref(v.ContractValue)},
		{"currency", v.Currency},
		{"payment_terms", v.PaymentTerms},
		{"governing_law", v.GoverningLaw},
		{"jurisdiction", v.Jurisdiction},
		{"start_date", dateOf(v.StartDate)},
		{"end_date", dateOf(v.EndDate)},
		{"renewal_notice_days", deref(v.RenewalNoticeDays)},
		{"auto_renew", v.AutoRenew},
		{"termination_notice_days", deref(v.TerminationNoticeDays)},
		{"insurance_requirements", bag(v.InsuranceRequirements)},
		{"data_protection_clauses", bag(v.DataProtectionClauses)},
		{"data_inventory", bag(v.DataInventory)},
	}
}

func deref[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func dateOf(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

func bag(m e.JSONMap) interface{} {
	if len(m) == 0 {
		return nil
	}
	return map[string]interface{}(m)
}

func empty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// DiffContracts compares two views field by field
func DiffContracts(prev, next ContractView) []Change {
	out := []Change{}
	nf := next.Fields()
	for i, pf := range prev.Fields() {
		from, to := pf.Value, nf[i].Value
		switch {
		case reflect.DeepEqual(from, to):
		case empty(from):
			out = append(out, Change{Kind: Added, Key: pf.Name, To: to})
		case empty(to):
			out = append(out, Change{Kind: Removed, Key: pf.Name, From: from})
		default:
			out = append(out, Change{Kind: Modified, Key: pf.Name, From: from, To: to})
		}
	}
	return out
}

// TermView is the comparable projection of a term
type TermView struct {
	TermCategory     string `json:"term_category"`
	TermTitle        string `json:"term_title"`
	TermText         string `json:"term_text"`
	RiskLevel        string `json:"risk_level"`
	ComplianceStatus string `json:"compliance_status"`
	ApprovalStatus   string `json:"approval_status"`
	IsStandard       bool   `json:"is_standard"`
}

func termKey(t e.ContractTerm) string {
	return strings.ToLower(strings.TrimSpace(t.TermCategory)) + "|" + strings.ToLower(strings.TrimSpace(t.TermTitle))
}

func termView(t e.ContractTerm) TermView {
	return TermView{
		TermCategory:     t.TermCategory,
		TermTitle:        t.TermTitle,
		TermText:         t.TermText,
		RiskLevel:        t.RiskLevel,
		ComplianceStatus: t.ComplianceStatus,
		ApprovalStatus:   t.ApprovalStatus,
		IsStandard:       t.IsStandard,
	}
}

// ClauseView is the comparable projection of a clause
type ClauseView struct {
	ClauseName            string `json:"clause_name"`
	ClauseType            string `json:"clause_type"`
	ClauseText            string `json:"clause_text"`
	RiskLevel             string `json:"risk_level"`
	IsStandard            bool   `json:"is_standard"`
	LegalReviewRequired   bool   `json:"legal_review_required"`
	TerminationConditions string `json:"termination_conditions"`
}

func clauseKey(c e.ContractClause) string {
	return strings.ToLower(strings.TrimSpace(c.ClauseName))
}

func clauseView(c e.ContractClause) ClauseView {
	return ClauseView{
		ClauseName:            c.ClauseName,
		ClauseType:            c.ClauseType,
		ClauseText:            c.ClauseText,
		RiskLevel:             c.RiskLevel,
		IsStandard:            c.IsStandard,
		LegalReviewRequired:   c.LegalReviewRequired,
		TerminationConditions: c.TerminationConditions,
	}
}

// diffKeyed compares two keyed sets. Output follows prev order, then the
// keys only next has in next order.
func diffKeyed[R any, V comparable](prev, next []R, key func(R) string, view func(R) V) []Change {
	out := []Change{}
	nextByKey := make(map[string]V, len(next))
	for _, r := range next {
		nextByKey[key(r)] = view(r)
	}
	seen := make(map[string]bool, len(prev))
	for _, r := range prev {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		pv := view(r)
		nv, ok := nextByKey[k]
		switch {
		case !ok:
			out = append(out, Change{Kind: Removed, Key: k, From: pv})
		case pv != nv:
			out = append(out, Change{Kind: Modified, Key: k, From: pv, To: nv})
		}
	}
	for _, r := range next {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Change{Kind: Added, Key: k, To: view(r)})
	}
	return out
}

// CompareWithPrevious diffs an amendment row against the version it was
// cut from
func (en *Engine) CompareWithPrevious(ctx context.Context, amendmentContractID int64) (*Comparison, error) {
	r := en.store.Reader(ctx)
	next, err := r.GetContract(amendmentContractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", amendmentContractID)
	}
	if next.ContractKind != e.KindAmendment {
		return nil, apperrors.Validation("contract_kind", "contract is not an amendment")
	}
	if next.PreviousVersionID == nil {
		return nil, apperrors.Validation("previous_version_id", "amendment has no previous version")
	}
	prev, err := r.GetContract(*next.PreviousVersionID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", *next.PreviousVersionID)
	}

	prevTerms, nextTerms, err := bothTerms(r, prev.ContractID, next.ContractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", amendmentContractID)
	}
	prevClauses, err := r.ListClauses(prev.ContractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", prev.ContractID)
	}
	nextClauses, err := r.ListClauses(next.ContractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", next.ContractID)
	}

	return &Comparison{
		AmendmentID: next.ContractID,
		PreviousID:  prev.ContractID,
		Contract:    DiffContracts(ViewOf(prev), ViewOf(next)),
		Terms:       diffKeyed(prevTerms, nextTerms, termKey, termView),
		Clauses:     diffKeyed(prevClauses, nextClauses, clauseKey, clauseView),
	}, nil
}

func bothTerms(r *sqlserver.Tx, prevID, nextID int64) ([]e.ContractTerm, []e.ContractTerm, error) {
	prev, err := r.ListTerms(prevID)
	if err != nil {
		return nil, nil, err
	}
	next, err := r.ListTerms(nextID)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}
