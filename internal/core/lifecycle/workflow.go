package lifecycle

import (
	e "tprmgrc/internal/models/entities"
)

// Approvals is the approval assignment machine. EXPIRED is reached only
// through the overdue sweep, see SystemExpire.
var Approvals = NewMachine("approval",
	[]e.ApprovalStatus{
		e.ApprovalAssigned, e.ApprovalInProgress, e.ApprovalCommented, e.ApprovalApproved,
		e.ApprovalRejected, e.ApprovalSkipped, e.ApprovalExpired, e.ApprovalCancelled,
	},
	[]Rule[e.ApprovalStatus]{
		{e.ApprovalAssigned, e.ApprovalInProgress},
		{e.ApprovalAssigned, e.ApprovalCommented},
		{e.ApprovalAssigned, e.ApprovalSkipped},
		{e.ApprovalAssigned, e.ApprovalCancelled},
		{e.ApprovalInProgress, e.ApprovalCommented},
		{e.ApprovalInProgress, e.ApprovalApproved},
		{e.ApprovalInProgress, e.ApprovalRejected},
		{e.ApprovalInProgress, e.ApprovalSkipped},
		{e.ApprovalInProgress, e.ApprovalCancelled},
		{e.ApprovalCommented, e.ApprovalInProgress},
		{e.ApprovalCommented, e.ApprovalApproved},
		{e.ApprovalCommented, e.ApprovalRejected},
		{e.ApprovalCommented, e.ApprovalSkipped},
		{e.ApprovalCommented, e.ApprovalCancelled},
		{e.ApprovalSkipped, e.ApprovalInProgress},
		{e.ApprovalSkipped, e.ApprovalCancelled},
		{e.ApprovalExpired, e.ApprovalCancelled},
	},
)

// CanSystemExpire reports whether the overdue sweep may move s to EXPIRED
func CanSystemExpire(s e.ApprovalStatus) bool {
	return s == e.ApprovalAssigned || s == e.ApprovalInProgress
}

// Renewals is the renewal process machine
var Renewals = NewMachine("renewal",
	[]e.RenewalStatus{e.RenewalInitiated, e.RenewalUnderReview, e.RenewalDecisionMade},
	[]Rule[e.RenewalStatus]{
		{e.RenewalInitiated, e.RenewalUnderReview},
		{e.RenewalUnderReview, e.RenewalDecisionMade},
	},
)

// Amendments is the amendment workflow machine
var Amendments = NewMachine("amendment",
	[]e.AmendmentStatus{e.AmendmentPending, e.AmendmentUnderReview, e.AmendmentApproved, e.AmendmentRejected},
	[]Rule[e.AmendmentStatus]{
		{e.AmendmentPending, e.AmendmentUnderReview},
		{e.AmendmentPending, e.AmendmentApproved},
		{e.AmendmentPending, e.AmendmentRejected},
		{e.AmendmentUnderReview, e.AmendmentApproved},
		{e.AmendmentUnderReview, e.AmendmentRejected},
		{e.AmendmentRejected, e.AmendmentPending},
	},
)

// Invitations is the vendor invitation machine
var Invitations = NewMachine("invitation",
	[]e.InvitationStatus{
		e.InvitationCreated, e.InvitationSent, e.InvitationOpened, e.InvitationAcknowledged,
		e.InvitationDeclined, e.InvitationSubmitted, e.InvitationCancelled,
	},
	[]Rule[e.InvitationStatus]{
		{e.InvitationCreated, e.InvitationSent},
		{e.InvitationCreated, e.InvitationCancelled},
		{e.InvitationSent, e.InvitationOpened},
		{e.InvitationSent, e.InvitationAcknowledged},
		{e.InvitationSent, e.InvitationDeclined},
		{e.InvitationSent, e.InvitationCancelled},
		{e.InvitationOpened, e.InvitationAcknowledged},
		{e.InvitationOpened, e.InvitationDeclined},
		{e.InvitationOpened, e.InvitationCancelled},
		{e.InvitationAcknowledged, e.InvitationSubmitted},
		{e.InvitationAcknowledged, e.InvitationCancelled},
	},
)
