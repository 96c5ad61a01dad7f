package vendors

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/lifecycle"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
)

// TokenPrefix starts every invitation token
const TokenPrefix = "inv_"

// TrackingActor signs transitions made through tracking links
const TrackingActor = "vendor"

const tokenAttempts = 5

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// RFPInput is the body of CreateRFP
type RFPInput struct {
	RFPNumber    string     `json:"rfp_number" binding:"required,notblank,max=100"`
	Title        string     `json:"title" binding:"required,notblank,max=500"`
	Description  string     `json:"description"`
	SubmissionBy *time.Time `json:"submission_deadline"`
}

// CreateRFP inserts an RFP in DRAFT
func (en *Engine) CreateRFP(ctx context.Context, actor string, in RFPInput) (*e.RFP, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	r := &e.RFP{
		RFPNumber:    strings.TrimSpace(in.RFPNumber),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Status:       "DRAFT",
		SubmissionBy: in.SubmissionBy,
		CreatedBy:    actor,
	}
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		return tx.CreateRFP(r)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "rfp", "")
	}
	return r, nil
}

// GetRFP loads an RFP
func (en *Engine) GetRFP(ctx context.Context, id int64) (*e.RFP, error) {
	r, err := en.store.Reader(ctx).GetRFP(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "rfp", id)
	}
	return r, nil
}

// Recipient is who an invitation link is minted for
type Recipient struct {
	VendorID    *int64
	Email       string
	VendorName  string
	ContactName string
}

// MintInvitationURL builds the response link of an invitation. Query keys
// are encoded in sorted order so equal inputs give equal links.
func MintInvitationURL(base string, rfpID int64, token string, to Recipient, utm map[string]string) string {
	q := url.Values{}
	q.Set("token", token)
	if to.VendorID != nil {
		q.Set("vendor_id", itoa(*to.VendorID))
	}
	if to.Email != "" {
		q.Set("email", to.Email)
	}
	if to.VendorName != "" {
		q.Set("vendor_name", to.VendorName)
	}
	if to.ContactName != "" {
		q.Set("contact_name", to.ContactName)
	}
	for k, v := range utm {
		if v == "" {
			continue
		}
		if !strings.HasPrefix(k, "utm_") {
			k = "utm_" + k
		}
		q.Set(k, v)
	}
	return strings.TrimRight(base, "/") + "/rfp/" + itoa(rfpID) + "/respond?" + q.Encode()
}

// TrackingURL builds the acknowledge or decline link of an invitation
func TrackingURL(base string, rfpID, invitationID int64, action string) string {
	return strings.TrimRight(base, "/") + "/rfp/" + itoa(rfpID) + "/invitations/" + itoa(invitationID) + "/" + action
}

// InvitationInput is the body of CreateInvitation. Either VendorID or
// VendorEmail must be given.
type InvitationInput struct {
	VendorID    *int64 `json:"vendor_id"`
	VendorEmail string `json:"vendor_email" binding:"omitempty,email,max=255"`
	VendorName  string `json:"vendor_name"`
	ContactName string `json:"contact_name"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
}

// fillFromVendor completes the recipient from the vendor record and its
// primary contact
func fillFromVendor(tx *sqlserver.Tx, inv *e.VendorInvitation) error {
	v, err := tx.GetVendor(*inv.VendorID)
	if err != nil {
		return apperrors.FromStore(err, "vendor", *inv.VendorID)
	}
	if inv.VendorName == "" {
		inv.VendorName = v.LegalName
	}
	if inv.VendorEmail != "" {
		return nil
	}
	c, err := tx.PrimaryContact(v.VendorID)
	if errors.Is(err, sqlserver.ErrNotFound) {
		return apperrors.Validation("vendor_email", "vendor has no primary contact")
	}
	if err != nil {
		return err
	}
	inv.VendorEmail = c.Email
	if inv.ContactName == "" {
		inv.ContactName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return nil
}

func (en *Engine) newToken(tx *sqlserver.Tx) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		tok := en.ids.Token(TokenPrefix)
		taken, err := tx.ExistsInvitationToken(tok)
		if err != nil {
			return "", err
		}
		if !taken {
			return tok, nil
		}
	}
	return "", idgen.ErrExhausted
}

// CreateInvitation invites a vendor to an RFP and mints its links
func (en *Engine) CreateInvitation(ctx context.Context, actor string, rfpID int64, in InvitationInput) (*e.VendorInvitation, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	inv := &e.VendorInvitation{
		RFPID:            rfpID,
		VendorID:         in.VendorID,
		VendorEmail:      strings.ToLower(strings.TrimSpace(in.VendorEmail)),
		VendorName:       strings.TrimSpace(in.VendorName),
		ContactName:      strings.TrimSpace(in.ContactName),
		InvitationStatus: e.InvitationCreated,
		UTMSource:        in.UTMSource,
		UTMMedium:        in.UTMMedium,
		UTMCampaign:      in.UTMCampaign,
		CreatedBy:        actor,
	}
	if inv.VendorID == nil && inv.VendorEmail == "" {
		return nil, apperrors.Validation("vendor_email", "vendor_id or vendor_email is required")
	}

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		rfp, err := tx.GetRFP(rfpID)
		if err != nil {
			return err
		}
		if inv.VendorID != nil {
			if err := fillFromVendor(tx, inv); err != nil {
				return err
			}
		}
		if err := validators.Email("vendor_email", inv.VendorEmail); err != nil {
			return err
		}
		if inv.UTMSource == "" {
			inv.UTMSource = "rfp_invitation"
		}
		if inv.UTMMedium == "" {
			inv.UTMMedium = "email"
		}
		if inv.UTMCampaign == "" {
			inv.UTMCampaign = "rfp_" + rfp.RFPNumber
		}

		tok, err := en.newToken(tx)
		if err != nil {
			return err
		}
		inv.UniqueToken = tok
		if err := tx.CreateInvitation(inv); err != nil {
			return err
		}

		inv.InvitationURL = MintInvitationURL(en.opts.BaseURL, rfpID, tok, Recipient{
			VendorID:    inv.VendorID,
			Email:       inv.VendorEmail,
			VendorName:  inv.VendorName,
			ContactName: inv.ContactName,
		}, map[string]string{
			"utm_source":   inv.UTMSource,
			"utm_medium":   inv.UTMMedium,
			"utm_campaign": inv.UTMCampaign,
		})
		inv.AcknowledgmentURL = TrackingURL(en.opts.BaseURL, rfpID, inv.InvitationID, "acknowledge")
		inv.DeclineURL = TrackingURL(en.opts.BaseURL, rfpID, inv.InvitationID, "decline")
		return tx.UpdateInvitation(inv)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "rfp", rfpID)
	}

	en.bus.Publish(ctx, invitationEvent(events.InvitationCreated, nil, inv, actor))
	return inv, nil
}

func invitationEvent(t events.Type, before, after *e.VendorInvitation, actor string) events.Event {
	ev := events.New(t, events.EntityInvitation, after.InvitationID, actor).
		WithMeta("rfp_id", itoa(after.RFPID)).
		WithMeta(events.MetaStatusTo, string(after.InvitationStatus))
	if before != nil {
		return ev.WithSnapshots(before, after).WithMeta(events.MetaStatusFrom, string(before.InvitationStatus))
	}
	return ev.WithSnapshots(nil, after)
}

// ListInvitations lists the invitations of an RFP
func (en *Engine) ListInvitations(ctx context.Context, rfpID int64) ([]e.VendorInvitation, error) {
	r := en.store.Reader(ctx)
	if _, err := r.GetRFP(rfpID); err != nil {
		return nil, apperrors.FromStore(err, "rfp", rfpID)
	}
	out, err := r.ListInvitations(rfpID)
	if err != nil {
		return nil, apperrors.FromStore(err, "rfp", rfpID)
	}
	if out == nil {
		out = []e.VendorInvitation{}
	}
	return out, nil
}

// GetInvitation loads an invitation scoped by RFP
func (en *Engine) GetInvitation(ctx context.Context, rfpID, invitationID int64) (*e.VendorInvitation, error) {
	inv, err := en.store.Reader(ctx).GetInvitation(rfpID, invitationID)
	if err != nil {
		return nil, apperrors.FromStore(err, "invitation", invitationID)
	}
	return inv, nil
}

// stamp records when the invitation reached status
func stamp(inv *e.VendorInvitation, status e.InvitationStatus, now time.Time) {
	switch status {
	case e.InvitationSent:
		inv.SentAt = &now
	case e.InvitationOpened:
		inv.OpenedAt = &now
	case e.InvitationAcknowledged, e.InvitationDeclined, e.InvitationSubmitted:
		inv.RespondedAt = &now
	}
}

// Transition moves an invitation to status. Reaching the current status
// again is a no-op.
func (en *Engine) Transition(ctx context.Context, actor string, rfpID, invitationID int64, status e.InvitationStatus) (*e.VendorInvitation, error) {
	status = e.InvitationStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !lifecycle.Invitations.Known(status) {
		return nil, apperrors.Validation("invitation_status", "unknown status "+string(status))
	}

	var before, after e.VendorInvitation
	moved := false
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		inv, err := tx.GetInvitation(rfpID, invitationID)
		if err != nil {
			return err
		}
		before = *inv
		if inv.InvitationStatus == status {
			after = *inv
			return nil
		}
		if err := lifecycle.Invitations.Validate(inv.InvitationStatus, status); err != nil {
			return err
		}
		inv.InvitationStatus = status
		stamp(inv, status, en.now().UTC())
		if err := tx.UpdateInvitation(inv); err != nil {
			return err
		}
		after = *inv
		moved = true
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "invitation", invitationID)
	}

	if moved {
		en.bus.Publish(ctx, invitationEvent(events.InvitationUpdated, &before, &after, actor))
	}
	return &after, nil
}

// Acknowledge is the acknowledge tracking endpoint
func (en *Engine) Acknowledge(ctx context.Context, rfpID, invitationID int64) (*e.VendorInvitation, error) {
	return en.Transition(ctx, TrackingActor, rfpID, invitationID, e.InvitationAcknowledged)
}

// Decline is the decline tracking endpoint
func (en *Engine) Decline(ctx context.Context, rfpID, invitationID int64) (*e.VendorInvitation, error) {
	return en.Transition(ctx, TrackingActor, rfpID, invitationID, e.InvitationDeclined)
}

// Open marks the invitation behind token as OPENED when it was SENT.
// Opening twice, or after a response, leaves it as it is.
func (en *Engine) Open(ctx context.Context, token string) (*e.VendorInvitation, error) {
	inv, err := en.store.Reader(ctx).GetInvitationByToken(strings.TrimSpace(token))
	if err != nil {
		return nil, apperrors.FromStore(err, "invitation", token)
	}
	if inv.InvitationStatus != e.InvitationSent {
		return inv, nil
	}
	return en.Transition(ctx, TrackingActor, inv.RFPID, inv.InvitationID, e.InvitationOpened)
}
