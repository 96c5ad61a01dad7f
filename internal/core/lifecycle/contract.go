package lifecycle

import (
	"time"

	e "tprmgrc/internal/models/entities"
)

// Contracts is the contract status machine
var Contracts = NewMachine("contract",
	[]e.ContractStatus{
		e.StatusDraft, e.StatusUnderNegotiation, e.StatusPendingAssignment, e.StatusUnderReview,
		e.StatusApproved, e.StatusActive, e.StatusExpired, e.StatusTerminated, e.StatusRejected,
	},
	[]Rule[e.ContractStatus]{
		{e.StatusDraft, e.StatusUnderNegotiation},
		{e.StatusDraft, e.StatusPendingAssignment},
		{e.StatusDraft, e.StatusUnderReview},
		{e.StatusDraft, e.StatusRejected},
		{e.StatusUnderNegotiation, e.StatusPendingAssignment},
		{e.StatusUnderNegotiation, e.StatusUnderReview},
		{e.StatusUnderNegotiation, e.StatusDraft},
		{e.StatusPendingAssignment, e.StatusUnderReview},
		{e.StatusUnderReview, e.StatusApproved},
		{e.StatusUnderReview, e.StatusRejected},
		{e.StatusApproved, e.StatusActive},
		{e.StatusApproved, e.StatusRejected},
		{e.StatusActive, e.StatusExpired},
		{e.StatusActive, e.StatusTerminated},
		{e.StatusExpired, e.StatusTerminated},
		{e.StatusRejected, e.StatusDraft},
	},
)

// DeriveStage projects a status onto a workflow stage. prev is the stage
// stored before the write.
func DeriveStage(status e.ContractStatus, prev e.WorkflowStage) e.WorkflowStage {
	switch status {
	case e.StatusDraft:
		return e.StageDraft
	case e.StatusUnderNegotiation:
		return e.StageNegotiation
	case e.StatusPendingAssignment, e.StatusUnderReview:
		return e.StageUnderReview
	case e.StatusApproved:
		if prev == e.StageExecuted || prev == e.StageActive {
			return e.StageActive
		}
		return e.StageApproved
	case e.StatusActive:
		return e.StageActive
	case e.StatusRejected:
		return e.StageRejected
	case e.StatusExpired:
		return e.StageExpired
	case e.StatusTerminated:
		return e.StageTerminated
	}
	return prev
}

// Today truncates now to the start of its UTC day
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Lapsed reports whether a contract's end date is before today
func Lapsed(c *e.Contract, now time.Time) bool {
	return c.EndDate != nil && c.EndDate.UTC().Before(Today(now))
}

// Derive applies the write-time rules to c: a lapsed contract that is not
// already expired or terminated becomes EXPIRED, then the stage is projected.
func Derive(c *e.Contract, prev e.WorkflowStage, now time.Time) {
	if Lapsed(c, now) && c.Status != e.StatusExpired && c.Status != e.StatusTerminated {
		c.Status = e.StatusExpired
	}
	c.WorkflowStage = DeriveStage(c.Status, prev)
}
