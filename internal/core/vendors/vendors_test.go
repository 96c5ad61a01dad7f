package vendors

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver/sqlservertest"
	"tprmgrc/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Engine, *[]events.Event) {
	t.Helper()
	var seen []events.Event
	bus := events.NewBus(events.Options{}, logger.NewNop())
	bus.SubscribeAll("recorder", events.Inline, func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev)
		return nil
	})
	en := New(sqlservertest.New(t), idgen.New(), bus, logger.NewNop(), Options{BaseURL: "https://tprm.example.com/"})
	en.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return en, &seen
}

func TestCreateVendor(t *testing.T) {
	en, _ := setup(t)
	ctx := context.Background()

	v, err := en.CreateVendor(ctx, "u1", VendorInput{VendorCode: "ACME", LegalName: "Acme Ltd", RiskLevel: " High "})
	require.NoError(t, err)
	assert.Equal(t, "high", v.RiskLevel)
	assert.Equal(t, "ACTIVE", v.Status)

	_, err = en.CreateVendor(ctx, "u1", VendorInput{VendorCode: "ACME", LegalName: "Other"})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindConflict, Field: "vendor_code"})

	_, err = en.CreateVendor(ctx, "u1", VendorInput{VendorCode: "X"})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "legal_name"})

	_, err = en.GetVendor(ctx, 404)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestContacts_SinglePrimary(t *testing.T) {
	en, _ := setup(t)
	ctx := context.Background()
	v, err := en.CreateVendor(ctx, "u1", VendorInput{VendorCode: "ACME", LegalName: "Acme Ltd"})
	require.NoError(t, err)

	a, err := en.AddContact(ctx, "u1", v.VendorID, ContactInput{FirstName: "Ann", Email: "Ann@Acme.com", IsPrimary: true})
	require.NoError(t, err)
	assert.Equal(t, "ann@acme.com", a.Email)
	b, err := en.AddContact(ctx, "u1", v.VendorID, ContactInput{FirstName: "Bob", Email: "bob@acme.com", IsPrimary: true})
	require.NoError(t, err)
	c, err := en.AddContact(ctx, "u1", v.VendorID, ContactInput{FirstName: "Cy", Email: "cy@acme.com"})
	require.NoError(t, err)

	primaries := func() []int64 {
		list, err := en.ListContacts(ctx, v.VendorID)
		require.NoError(t, err)
		var out []int64
		for _, x := range list {
			if x.IsPrimary {
				out = append(out, x.ContactID)
			}
		}
		return out
	}
	assert.Equal(t, []int64{b.ContactID}, primaries())

	got, err := en.SetPrimary(ctx, "u1", v.VendorID, c.ContactID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
	assert.Equal(t, []int64{c.ContactID}, primaries())

	_, err = en.SetPrimary(ctx, "u1", v.VendorID, 999)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Equal(t, []int64{c.ContactID}, primaries())

	_, err = en.AddContact(ctx, "u1", v.VendorID, ContactInput{Email: "nope"})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "email"})
	_, err = en.AddContact(ctx, "u1", 404, ContactInput{Email: "x@y.z"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestMintInvitationURL(t *testing.T) {
	vid := int64(7)
	link := MintInvitationURL("https://tprm.example.com/", 12, "inv_abc", Recipient{
		VendorID:    &vid,
		Email:       "ann@acme.com",
		VendorName:  "Acme Ltd",
		ContactName: "Ann",
	}, map[string]string{"source": "rfp_invitation", "utm_medium": "email", "utm_campaign": ""})

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/rfp/12/respond", u.Path)
	q := u.Query()
	assert.Equal(t, "inv_abc", q.Get("token"))
	assert.Equal(t, "7", q.Get("vendor_id"))
	assert.Equal(t, "Acme Ltd", q.Get("vendor_name"))
	assert.Equal(t, "rfp_invitation", q.Get("utm_source"))
	assert.Equal(t, "email", q.Get("utm_medium"))
	assert.False(t, q.Has("utm_campaign"))

	again := MintInvitationURL("https://tprm.example.com", 12, "inv_abc", Recipient{
		VendorID: &vid, Email: "ann@acme.com", VendorName: "Acme Ltd", ContactName: "Ann",
	}, map[string]string{"utm_medium": "email", "source": "rfp_invitation"})
	assert.Equal(t, link, again)

	assert.Equal(t, "https://x.io/rfp/3/invitations/9/decline", TrackingURL("https://x.io/", 3, 9, "decline"))
}

func TestCreateInvitation(t *testing.T) {
	en, seen := setup(t)
	ctx := context.Background()

	rfp, err := en.CreateRFP(ctx, "u1", RFPInput{RFPNumber: "RFP-1", Title: "Cloud hosting"})
	require.NoError(t, err)
	v, err := en.CreateVendor(ctx, "u1", VendorInput{VendorCode: "ACME", LegalName: "Acme Ltd"})
	require.NoError(t, err)

	_, err = en.CreateInvitation(ctx, "u1", rfp.RFPID, InvitationInput{VendorID: &v.VendorID})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "vendor_email"}, "no primary contact")

	_, err = en.AddContact(ctx, "u1", v.VendorID, ContactInput{FirstName: "Ann", LastName: "Lee", Email: "ann@acme.com", IsPrimary: true})
	require.NoError(t, err)

	inv, err := en.CreateInvitation(ctx, "u1", rfp.RFPID, InvitationInput{VendorID: &v.VendorID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(inv.UniqueToken, TokenPrefix))
	assert.Equal(t, e.InvitationCreated, inv.InvitationStatus)
	assert.Equal(t, "ann@acme.com", inv.VendorEmail)
	assert.Equal(t, "Ann Lee", inv.ContactName)
	assert.Equal(t, "Acme Ltd", inv.VendorName)
	assert.Equal(t, "rfp_RFP-1", inv.UTMCampaign)
	assert.Contains(t, inv.InvitationURL, "token="+inv.UniqueToken)
	assert.Contains(t, inv.InvitationURL, "utm_source=rfp_invitation")
	assert.Equal(t, TrackingURL("https://tprm.example.com", rfp.RFPID, inv.InvitationID, "acknowledge"), inv.AcknowledgmentURL)
	assert.Equal(t, TrackingURL("https://tprm.example.com", rfp.RFPID, inv.InvitationID, "decline"), inv.DeclineURL)

	stored, err := en.GetInvitation(ctx, rfp.RFPID, inv.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvitationURL, stored.InvitationURL)

	open, err := en.CreateInvitation(ctx, "u1", rfp.RFPID, InvitationInput{VendorEmail: "Sales@Other.io"})
	require.NoError(t, err)
	assert.NotEqual(t, inv.UniqueToken, open.UniqueToken)
	assert.Nil(t, open.VendorID)

	_, err = en.CreateInvitation(ctx, "u1", rfp.RFPID, InvitationInput{})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "vendor_email"})
	_, err = en.CreateInvitation(ctx, "u1", 404, InvitationInput{VendorEmail: "a@b.c"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	list, err := en.ListInvitations(ctx, rfp.RFPID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	var created int
	for _, ev := range *seen {
		if ev.Type == events.InvitationCreated {
			created++
		}
	}
	assert.Equal(t, 2, created)
}

func TestInvitationTracking(t *testing.T) {
	en, _ := setup(t)
	ctx := context.Background()
	rfp, err := en.CreateRFP(ctx, "u1", RFPInput{RFPNumber: "RFP-1", Title: "t"})
	require.NoError(t, err)
	inv, err := en.CreateInvitation(ctx, "u1", rfp.RFPID, InvitationInput{VendorEmail: "a@b.io"})
	require.NoError(t, err)

	_, err = en.Acknowledge(ctx, rfp.RFPID, inv.InvitationID)
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition), "not sent yet")

	got, err := en.Open(ctx, inv.UniqueToken)
	require.NoError(t, err)
	assert.Equal(t, e.InvitationCreated, got.InvitationStatus, "opening an unsent invitation is ignored")

	got, err = en.Transition(ctx, "u1", rfp.RFPID, inv.InvitationID, "sent")
	require.NoError(t, err)
	require.NotNil(t, got.SentAt)

	got, err = en.Open(ctx, inv.UniqueToken)
	require.NoError(t, err)
	assert.Equal(t, e.InvitationOpened, got.InvitationStatus)
	assert.NotNil(t, got.OpenedAt)

	got, err = en.Acknowledge(ctx, rfp.RFPID, inv.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, e.InvitationAcknowledged, got.InvitationStatus)
	assert.NotNil(t, got.RespondedAt)

	got, err = en.Acknowledge(ctx, rfp.RFPID, inv.InvitationID)
	require.NoError(t, err, "clicking twice is harmless")
	assert.Equal(t, e.InvitationAcknowledged, got.InvitationStatus)

	_, err = en.Decline(ctx, rfp.RFPID, inv.InvitationID)
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition))

	_, err = en.Transition(ctx, "u1", rfp.RFPID, inv.InvitationID, e.InvitationSubmitted)
	require.NoError(t, err)
	_, err = en.Transition(ctx, "u1", rfp.RFPID, inv.InvitationID, e.InvitationCancelled)
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition), "SUBMITTED is terminal")

	_, err = en.Transition(ctx, "u1", rfp.RFPID, inv.InvitationID, "LOST")
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "invitation_status"})

	_, err = en.Decline(ctx, rfp.RFPID+1, inv.InvitationID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound), "scoped by rfp")
}
