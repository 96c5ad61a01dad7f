package contracts

import (
	"encoding/json"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/validators"
	e "tprmgrc/internal/models/entities"
)

// Input is the body of a contract or subcontract create
type Input struct {
	ContractNumber        string           `json:"contract_number" binding:"required,notblank,max=150"`
	ContractTitle         string           `json:"contract_title" binding:"required,notblank,max=500"`
	ContractType          string           `json:"contract_type"`
	Description           string           `json:"description"`
	Status                e.ContractStatus `json:"status"`
	VendorID              *int64           `json:"vendor_id"`
	ContractValue         *float64         `json:"contract_value" binding:"omitempty,gte=0"`
	Currency              string           `json:"currency"`
	PaymentTerms          string           `json:"payment_terms"`
	GoverningLaw          string           `json:"governing_law"`
	Jurisdiction          string           `json:"jurisdiction"`
	FilePath              string           `json:"file_path"`
	StartDate             *time.Time       `json:"start_date"`
	EndDate               *time.Time       `json:"end_date"`
	SignedDate            *time.Time       `json:"signed_date"`
	NotificationDate      *time.Time       `json:"notification_date"`
	RenewalNoticeDays     *int             `json:"renewal_notice_days" binding:"omitempty,gte=0"`
	AutoRenew             bool             `json:"auto_renew"`
	TerminationNoticeDays *int             `json:"termination_notice_days" binding:"omitempty,gte=0"`
	PermissionRequired    bool             `json:"permission_required"`
	CanBeRestored         *bool            `json:"can_be_restored"`

	validators.Bags
}

// toContract builds an unsaved row from the input
func (in Input) toContract() (*e.Contract, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	c := &e.Contract{
		ContractNumber:     strings.TrimSpace(in.ContractNumber),
		ContractTitle:      strings.TrimSpace(in.ContractTitle),
		ContractType:       in.ContractType,
		Description:        in.Description,
		Status:             in.Status,
		VendorID:           in.VendorID,
		ContractValue:      in.ContractValue,
		Currency:           in.Currency,
		PaymentTerms:       in.PaymentTerms,
		GoverningLaw:       in.GoverningLaw,
		Jurisdiction:       in.Jurisdiction,
		FilePath:           in.FilePath,
		StartDate:          utc(in.StartDate),
		EndDate:            utc(in.EndDate),
		SignedDate:         utc(in.SignedDate),
		NotificationDate:   utc(in.NotificationDate),
		RenewalNoticeDays:  in.RenewalNoticeDays,
		AutoRenew:          in.AutoRenew,
		TerminationNotice:  in.TerminationNoticeDays,
		PermissionRequired: in.PermissionRequired,
		CanBeRestored:      true,
		VersionNumber:      e.InitialVersion,
	}
	if in.CanBeRestored != nil {
		c.CanBeRestored = *in.CanBeRestored
	}
	if c.Status == "" {
		c.Status = e.StatusUnderReview
	}
	if err := validators.ApplyBags(c, in.Bags, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Patch is a partial contract update. Nil fields are left alone.
type Patch struct {
	ContractNumber        *string           `json:"contract_number"`
	ContractTitle         *string           `json:"contract_title"`
	ContractType          *string           `json:"contract_type"`
	Description           *string           `json:"description"`
	Status                *e.ContractStatus `json:"status"`
	VendorID              *int64            `json:"vendor_id"`
	ContractValue         *float64          `json:"contract_value"`
	Currency              *string           `json:"currency"`
	PaymentTerms          *string           `json:"payment_terms"`
	GoverningLaw          *string           `json:"governing_law"`
	Jurisdiction          *string           `json:"jurisdiction"`
	FilePath              *string           `json:"file_path"`
	StartDate             *time.Time        `json:"start_date"`
	EndDate               *time.Time        `json:"end_date"`
	SignedDate            *time.Time        `json:"signed_date"`
	NotificationDate      *time.Time        `json:"notification_date"`
	RenewalNoticeDays     *int              `json:"renewal_notice_days"`
	AutoRenew             *bool             `json:"auto_renew"`
	TerminationNoticeDays *int              `json:"termination_notice_days"`
	PermissionRequired    *bool             `json:"permission_required"`
	// RowVersion, when set, must match the stored row.
	RowVersion *int64 `json:"row_version"`

	validators.Bags
	// BagsSet lists the bag columns present in the request.
	BagsSet map[string]bool `json:"-"`
}

// DecodePatch parses a JSON patch and records which bag keys were sent
func DecodePatch(raw []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, apperrors.Validation("body", "invalid JSON: "+err.Error())
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return p, apperrors.Validation("body", "must be a JSON object")
	}
	p.BagsSet = map[string]bool{}
	for _, k := range []string{validators.BagInsurance, validators.BagDataProtection, validators.BagCustomFields, validators.BagDataInventory} {
		if _, ok := keys[k]; ok {
			p.BagsSet[k] = true
		}
	}
	return p, nil
}

// Apply copies every set field of p onto c
func (p Patch) Apply(c *e.Contract) error {
	if p.ContractNumber != nil {
		c.ContractNumber = strings.TrimSpace(*p.ContractNumber)
	}
	if p.ContractTitle != nil {
		c.ContractTitle = strings.TrimSpace(*p.ContractTitle)
	}
	setString(&c.ContractType, p.ContractType)
	setString(&c.Description, p.Description)
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.VendorID != nil {
		c.VendorID = p.VendorID
	}
	if p.ContractValue != nil {
		c.ContractValue = p.ContractValue
	}
	setString(&c.Currency, p.Currency)
	setString(&c.PaymentTerms, p.PaymentTerms)
	setString(&c.GoverningLaw, p.GoverningLaw)
	setString(&c.Jurisdiction, p.Jurisdiction)
	setString(&c.FilePath, p.FilePath)
	if p.StartDate != nil {
		c.StartDate = utc(p.StartDate)
	}
	if p.EndDate != nil {
		c.EndDate = utc(p.EndDate)
	}
	if p.SignedDate != nil {
		c.SignedDate = utc(p.SignedDate)
	}
	if p.NotificationDate != nil {
		c.NotificationDate = utc(p.NotificationDate)
	}
	if p.RenewalNoticeDays != nil {
		c.RenewalNoticeDays = p.RenewalNoticeDays
	}
	if p.AutoRenew != nil {
		c.AutoRenew = *p.AutoRenew
	}
	if p.TerminationNoticeDays != nil {
		c.TerminationNotice = p.TerminationNoticeDays
	}
	if p.PermissionRequired != nil {
		c.PermissionRequired = *p.PermissionRequired
	}

	set := p.BagsSet
	if set == nil {
		// built in code rather than decoded: any non-nil bag counts as set
		set = map[string]bool{
			validators.BagInsurance:      p.InsuranceRequirements != nil,
			validators.BagDataProtection: p.DataProtectionClauses != nil,
			validators.BagCustomFields:   p.CustomFields != nil,
			validators.BagDataInventory:  p.DataInventory != nil,
		}
	}
	return validators.ApplyBags(c, p.Bags, set)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// TermInput creates or replaces a term. TermID is a proposal.
type TermInput struct {
	TermID           string   `json:"term_id"`
	TermCategory     string   `json:"term_category" binding:"required,notblank,max=100"`
	TermTitle        string   `json:"term_title" binding:"max=500"`
	TermText         string   `json:"term_text" binding:"required,notblank"`
	RiskLevel        string   `json:"risk_level" binding:"omitempty,risklevel"`
	ComplianceStatus string   `json:"compliance_status"`
	ApprovalStatus   string   `json:"approval_status"`
	IsStandard       bool     `json:"is_standard"`
	QuestionnaireIDs []string `json:"questionnaire_ids"`
}

func (in TermInput) Build(contract *e.Contract, actor string) *e.ContractTerm {
	return &e.ContractTerm{
		ContractID:       contract.ContractID,
		TermCategory:     in.TermCategory,
		TermTitle:        in.TermTitle,
		TermText:         in.TermText,
		RiskLevel:        strings.ToLower(strings.TrimSpace(in.RiskLevel)),
		ComplianceStatus: in.ComplianceStatus,
		ApprovalStatus:   in.ApprovalStatus,
		IsStandard:       in.IsStandard,
		VersionNumber:    contract.VersionNumber.String(),
		CreatedBy:        actor,
	}
}

// ClauseInput creates or replaces a clause. ClauseID is a proposal.
type ClauseInput struct {
	ClauseID              string `json:"clause_id"`
	ClauseName            string `json:"clause_name" binding:"required,notblank,max=300"`
	ClauseType            string `json:"clause_type"`
	ClauseText            string `json:"clause_text" binding:"required,notblank"`
	RiskLevel             string `json:"risk_level" binding:"omitempty,risklevel"`
	IsStandard            bool   `json:"is_standard"`
	LegalReviewRequired   bool   `json:"legal_review_required"`
	RenewalNoticeDays     *int   `json:"renewal_notice_days" binding:"omitempty,gte=0"`
	AutoRenewalTerms      string `json:"auto_renewal_terms"`
	TerminationNoticeDays *int   `json:"termination_notice_days" binding:"omitempty,gte=0"`
	TerminationConditions string `json:"termination_conditions"`
}

func (in ClauseInput) Build(contract *e.Contract, actor string) *e.ContractClause {
	return &e.ContractClause{
		ContractID:            contract.ContractID,
		ClauseName:            in.ClauseName,
		ClauseType:            in.ClauseType,
		ClauseText:            in.ClauseText,
		RiskLevel:             strings.ToLower(strings.TrimSpace(in.RiskLevel)),
		IsStandard:            in.IsStandard,
		LegalReviewRequired:   in.LegalReviewRequired,
		RenewalNoticeDays:     in.RenewalNoticeDays,
		AutoRenewalTerms:      in.AutoRenewalTerms,
		TerminationNoticeDays: in.TerminationNoticeDays,
		TerminationConditions: in.TerminationConditions,
		VersionNumber:         contract.VersionNumber.String(),
		CreatedBy:             actor,
	}
}
