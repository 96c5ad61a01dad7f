package validators

import (
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	e "tprmgrc/internal/models/entities"
)

var contractKinds = map[e.ContractKind]bool{
	e.KindMain:        true,
	e.KindSubcontract: true,
	e.KindAmendment:   true,
}

var contractStatuses = map[e.ContractStatus]bool{
	e.StatusDraft:             true,
	e.StatusUnderNegotiation:  true,
	e.StatusPendingAssignment: true,
	e.StatusUnderReview:       true,
	e.StatusApproved:          true,
	e.StatusRejected:          true,
	e.StatusActive:            true,
	e.StatusExpired:           true,
	e.StatusTerminated:        true,
}

// Contract checks the self-contained rules of a contract row
func Contract(c *e.Contract) error {
	if strings.TrimSpace(c.ContractNumber) == "" {
		return apperrors.Validation("contract_number", "is required")
	}
	if len(c.ContractNumber) > 150 {
		return apperrors.Validation("contract_number", "must be at most 150 characters")
	}
	if strings.TrimSpace(c.ContractTitle) == "" {
		return apperrors.Validation("contract_title", "is required")
	}
	if !contractKinds[c.ContractKind] {
		return apperrors.Validation("contract_kind", "must be MAIN, SUBCONTRACT or AMENDMENT")
	}
	if !contractStatuses[c.Status] {
		return apperrors.Validation("status", "unknown status "+string(c.Status))
	}
	if c.VersionNumber <= 0 {
		return apperrors.Validation("version_number", "must be positive")
	}
	if c.ContractKind != e.KindMain && (c.ParentContractID == nil || *c.ParentContractID == 0) {
		return apperrors.Validation("parent_contract_id", "is required for "+string(c.ContractKind))
	}
	if c.ContractValue != nil && *c.ContractValue < 0 {
		return apperrors.Validation("contract_value", "must not be negative")
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return apperrors.Validation("end_date", "must not be before start_date")
	}
	if c.RenewalNoticeDays != nil && *c.RenewalNoticeDays < 0 {
		return apperrors.Validation("renewal_notice_days", "must not be negative")
	}
	if c.TerminationNotice != nil && *c.TerminationNotice < 0 {
		return apperrors.Validation("termination_notice_days", "must not be negative")
	}
	return nil
}

// Parent checks that a parent row may own a child of kind
func Parent(parent *e.Contract, kind e.ContractKind) error {
	if parent == nil {
		return apperrors.NotFound("parent contract", "")
	}
	if parent.IsArchived {
		return apperrors.NotFound("parent contract", parent.ContractID)
	}
	if kind == e.KindSubcontract && parent.ContractKind == e.KindSubcontract {
		return apperrors.Validation("parent_contract_id", "a subcontract cannot own subcontracts")
	}
	return nil
}

// Amendment checks the workflow and area rules of an amendment record
func Amendment(a *e.ContractAmendment) error {
	if strings.TrimSpace(a.AmendmentNumber) == "" {
		return apperrors.Validation("amendment_number", "is required")
	}
	if a.FinancialImpact < 0 {
		return apperrors.Validation("financial_impact", "must not be negative")
	}
	switch a.WorkflowStatus {
	case e.AmendmentPending, e.AmendmentUnderReview, e.AmendmentApproved, e.AmendmentRejected:
	default:
		return apperrors.Validation("workflow_status", "unknown status "+string(a.WorkflowStatus))
	}
	if a.WorkflowStatus == e.AmendmentApproved && a.ApprovalDate == nil {
		return apperrors.Validation("approval_date", "is required once approved")
	}
	switch a.AffectedArea {
	case e.AffectsTerms:
		if len(SplitIDs(a.AmendedClauseIDs)) > 0 {
			return apperrors.Validation("amended_clause_ids", "must be empty when only terms are affected")
		}
	case e.AffectsClauses:
		if len(SplitIDs(a.AmendedTermIDs)) > 0 {
			return apperrors.Validation("amended_term_ids", "must be empty when only clauses are affected")
		}
	case e.AffectsBoth:
	default:
		return apperrors.Validation("affected_area", "must be terms, clauses or both")
	}
	if a.EffectiveDate != nil && a.EffectiveDate.Before(dayOf(a.AmendmentDate)) {
		return apperrors.Validation("effective_date", "must not be before amendment_date")
	}
	return nil
}

// Renewal checks the decision rules of a renewal. strict also enforces
// notification <= renewal <= decision due.
func Renewal(r *e.ContractRenewal, strict bool) error {
	switch r.Status {
	case e.RenewalInitiated, e.RenewalUnderReview, e.RenewalDecisionMade:
	default:
		return apperrors.Validation("status", "unknown status "+string(r.Status))
	}
	switch r.RenewalDecision {
	case e.DecisionPending:
	case e.DecisionRenew, e.DecisionRenegotiate, e.DecisionTerminate:
		if r.DecisionDate == nil {
			return apperrors.Validation("decision_date", "is required once a decision is made")
		}
		if strings.TrimSpace(r.DecidedBy) == "" {
			return apperrors.Validation("decided_by", "is required once a decision is made")
		}
		if r.RenewalDecision == e.DecisionRenew && (r.NewContractID == nil || *r.NewContractID == 0) {
			return apperrors.Validation("new_contract_id", "is required when the decision is RENEW")
		}
	default:
		return apperrors.Validation("renewal_decision", "unknown decision "+string(r.RenewalDecision))
	}
	if r.RenewalDecision != e.DecisionRenew && r.NewContractID != nil {
		return apperrors.Validation("new_contract_id", "is only set when the decision is RENEW")
	}
	if r.Status == e.RenewalDecisionMade && r.RenewalDecision == e.DecisionPending {
		return apperrors.Validation("renewal_decision", "must be decided before the renewal is closed")
	}
	if r.RenewalDate.IsZero() {
		return apperrors.Validation("renewal_date", "is required")
	}
	if !strict {
		return nil
	}
	if r.NotificationDate != nil && r.NotificationDate.After(r.RenewalDate) {
		return apperrors.Validation("notification_date", "must not be after renewal_date")
	}
	if r.DecisionDueDate != nil && r.DecisionDueDate.Before(r.RenewalDate) {
		return apperrors.Validation("decision_due_date", "must not be before renewal_date")
	}
	return nil
}

var objectTypes = map[e.ApprovalObjectType]bool{
	e.ObjectContractCreation:    true,
	e.ObjectContractAmendment:   true,
	e.ObjectSubcontractCreation: true,
	e.ObjectContractRenewal:     true,
	e.ObjectSLACreation:         true,
	e.ObjectSLAAmendment:        true,
	e.ObjectSLARenewal:          true,
	e.ObjectSLATermination:      true,
}

// KnownObjectType reports whether t is in the approval vocabulary
func KnownObjectType(t e.ApprovalObjectType) bool {
	return objectTypes[t]
}

// Assignment checks the rules of a new approval assignment that span
// fields. Required fields are checked on the input.
func Assignment(a *e.Approval) error {
	if strings.TrimSpace(a.AssignerID) == "" {
		return apperrors.Validation("assigner_id", "is required")
	}
	if a.DueDate.Before(a.AssignedDate) {
		return apperrors.Validation("due_date", "must not be before assigned_date")
	}
	return nil
}

// SplitIDs parses a comma separated id list, dropping blanks
func SplitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinIDs renders ids as a comma separated list
func JoinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
