package lifecycle

import (
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	e "tprmgrc/internal/models/entities"

	"github.com/stretchr/testify/assert"
)

func TestContracts_TableEnumeration(t *testing.T) {
	legal := map[e.ContractStatus][]e.ContractStatus{
		e.StatusDraft:             {e.StatusUnderNegotiation, e.StatusPendingAssignment, e.StatusUnderReview, e.StatusRejected},
		e.StatusUnderNegotiation:  {e.StatusPendingAssignment, e.StatusUnderReview, e.StatusDraft},
		e.StatusPendingAssignment: {e.StatusUnderReview},
		e.StatusUnderReview:       {e.StatusApproved, e.StatusRejected},
		e.StatusApproved:          {e.StatusActive, e.StatusRejected},
		e.StatusActive:            {e.StatusExpired, e.StatusTerminated},
		e.StatusExpired:           {e.StatusTerminated},
		e.StatusRejected:          {e.StatusDraft},
		e.StatusTerminated:        nil,
	}

	for _, from := range Contracts.States() {
		allowed := map[e.ContractStatus]bool{from: true}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range Contracts.States() {
			err := Contracts.Validate(from, to)
			if allowed[to] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			if assert.Error(t, err, "%s -> %s", from, to) {
				assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition))
			}
		}
	}
	assert.True(t, Contracts.Terminal(e.StatusTerminated))
}

func TestApprovals_TableEnumeration(t *testing.T) {
	legal := map[e.ApprovalStatus][]e.ApprovalStatus{
		e.ApprovalAssigned:   {e.ApprovalInProgress, e.ApprovalCommented, e.ApprovalSkipped, e.ApprovalCancelled},
		e.ApprovalInProgress: {e.ApprovalCommented, e.ApprovalApproved, e.ApprovalRejected, e.ApprovalSkipped, e.ApprovalCancelled},
		e.ApprovalCommented:  {e.ApprovalInProgress, e.ApprovalApproved, e.ApprovalRejected, e.ApprovalSkipped, e.ApprovalCancelled},
		e.ApprovalSkipped:    {e.ApprovalInProgress, e.ApprovalCancelled},
		e.ApprovalExpired:    {e.ApprovalCancelled},
	}

	for _, from := range Approvals.States() {
		for _, to := range Approvals.States() {
			want := from == to
			for _, l := range legal[from] {
				want = want || l == to
			}
			assert.Equal(t, want, Approvals.Allowed(from, to), "%s -> %s", from, to)
		}
	}

	for _, s := range []e.ApprovalStatus{e.ApprovalApproved, e.ApprovalRejected, e.ApprovalCancelled} {
		assert.True(t, Approvals.Terminal(s), s)
	}
	assert.Equal(t, []e.ApprovalStatus{e.ApprovalCancelled}, Approvals.Targets(e.ApprovalExpired))
}

func TestIllegalTransitionCarriesStates(t *testing.T) {
	err := Approvals.Validate(e.ApprovalApproved, e.ApprovalInProgress)

	var ae *apperrors.Error
	if assert.ErrorAs(t, err, &ae) {
		assert.Equal(t, "APPROVED", ae.From)
		assert.Equal(t, "IN_PROGRESS", ae.To)
	}
}

func TestCanSystemExpire(t *testing.T) {
	assert.True(t, CanSystemExpire(e.ApprovalAssigned))
	assert.True(t, CanSystemExpire(e.ApprovalInProgress))
	assert.False(t, CanSystemExpire(e.ApprovalCommented))
	assert.False(t, CanSystemExpire(e.ApprovalApproved))
}

func TestRenewalsAndAmendments(t *testing.T) {
	assert.NoError(t, Renewals.Validate(e.RenewalInitiated, e.RenewalUnderReview))
	assert.NoError(t, Renewals.Validate(e.RenewalUnderReview, e.RenewalDecisionMade))
	assert.Error(t, Renewals.Validate(e.RenewalInitiated, e.RenewalDecisionMade))
	assert.Error(t, Renewals.Validate(e.RenewalDecisionMade, e.RenewalUnderReview))
	assert.True(t, Renewals.Terminal(e.RenewalDecisionMade))

	assert.NoError(t, Amendments.Validate(e.AmendmentUnderReview, e.AmendmentApproved))
	assert.Error(t, Amendments.Validate(e.AmendmentApproved, e.AmendmentRejected))
}

func TestInvitations(t *testing.T) {
	for _, s := range []e.InvitationStatus{e.InvitationCreated, e.InvitationSent, e.InvitationOpened, e.InvitationAcknowledged} {
		assert.True(t, Invitations.Allowed(s, e.InvitationCancelled), s)
	}
	for _, s := range []e.InvitationStatus{e.InvitationDeclined, e.InvitationSubmitted, e.InvitationCancelled} {
		assert.True(t, Invitations.Terminal(s), s)
	}
	assert.False(t, Invitations.Allowed(e.InvitationCreated, e.InvitationSubmitted))
	assert.True(t, Invitations.Known(e.InvitationOpened))
	assert.False(t, Invitations.Known(e.InvitationStatus("LOST")))
}

func TestDeriveStage(t *testing.T) {
	tests := []struct {
		status e.ContractStatus
		prev   e.WorkflowStage
		want   e.WorkflowStage
	}{
		{e.StatusDraft, "", e.StageDraft},
		{e.StatusUnderNegotiation, e.StageDraft, e.StageNegotiation},
		{e.StatusPendingAssignment, "", e.StageUnderReview},
		{e.StatusUnderReview, e.StageDraft, e.StageUnderReview},
		{e.StatusApproved, e.StageUnderReview, e.StageApproved},
		{e.StatusApproved, e.StageExecuted, e.StageActive},
		{e.StatusApproved, e.StageActive, e.StageActive},
		{e.StatusActive, e.StageApproved, e.StageActive},
		{e.StatusRejected, e.StageUnderReview, e.StageRejected},
		{e.StatusExpired, e.StageActive, e.StageExpired},
		{e.StatusTerminated, e.StageActive, e.StageTerminated},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+string(tt.prev), func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStage(tt.status, tt.prev))
		})
	}
}

func TestDerive_LapsedContractExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c := &e.Contract{Status: e.StatusDraft, EndDate: &past}
	Derive(c, "", now)
	assert.Equal(t, e.StatusExpired, c.Status)
	assert.Equal(t, e.StageExpired, c.WorkflowStage)

	c = &e.Contract{Status: e.StatusTerminated, EndDate: &past}
	Derive(c, e.StageTerminated, now)
	assert.Equal(t, e.StatusTerminated, c.Status)

	c = &e.Contract{Status: e.StatusActive, EndDate: &today}
	Derive(c, e.StageActive, now)
	assert.Equal(t, e.StatusActive, c.Status, "ending today is not lapsed")

	c = &e.Contract{Status: e.StatusUnderReview}
	Derive(c, "", now)
	assert.Equal(t, e.StageUnderReview, c.WorkflowStage)
}
