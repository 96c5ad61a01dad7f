package renewals

import (
	"context"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/repositories/sqlserver/sqlservertest"
	"tprmgrc/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts Options) (*Engine, *sqlserver.Internal, *[]events.Type) {
	t.Helper()
	s := sqlservertest.New(t)
	var got []events.Type
	bus := events.NewBus(events.Options{}, logger.NewNop())
	bus.SubscribeAll("recorder", events.Inline, func(_ context.Context, ev events.Event) error {
		got = append(got, ev.Type)
		return nil
	})
	return New(s, bus, logger.NewNop(), opts), s, &got
}

func contract(t *testing.T, s *sqlserver.Internal, number string) int64 {
	t.Helper()
	c := &e.Contract{
		ContractNumber: number,
		ContractTitle:  "x",
		ContractKind:   e.KindMain,
		VersionNumber:  e.InitialVersion,
		Status:         e.StatusActive,
		WorkflowStage:  e.StageActive,
	}
	require.NoError(t, s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		return tx.CreateContract(c)
	}))
	return c.ContractID
}

func day(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func TestCreate_Defaults(t *testing.T) {
	en, s, got := setup(t, Options{})
	cid := contract(t, s, "ACME-001")

	r, err := en.Create(context.Background(), "u1", cid, Input{RenewalDate: day(15)})
	require.NoError(t, err)
	assert.Equal(t, e.DecisionPending, r.RenewalDecision)
	assert.Equal(t, e.RenewalInitiated, r.Status)
	assert.Equal(t, "u1", r.CreatedBy)
	assert.Equal(t, []events.Type{events.RenewalCreated}, *got)

	list, err := en.List(context.Background(), cid)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreate_Validation(t *testing.T) {
	en, s, _ := setup(t, Options{StrictDates: true})
	cid := contract(t, s, "ACME-001")
	ctx := context.Background()

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"renewal date", Input{}, "renewal_date"},
		{"starts under review", Input{RenewalDate: day(15), Status: e.RenewalUnderReview}, "status"},
		{"starts closed", Input{RenewalDate: day(15), Status: e.RenewalDecisionMade, RenewalDecision: e.DecisionTerminate, DecisionDate: ptr(day(10)), DecidedBy: "u1"}, "status"},
		{"unknown decision", Input{RenewalDate: day(15), RenewalDecision: "MAYBE"}, "renewal_decision"},
		{"renew without new contract", Input{RenewalDate: day(15), RenewalDecision: e.DecisionRenew, DecisionDate: ptr(day(10)), DecidedBy: "u1"}, "new_contract_id"},
		{"decision without date", Input{RenewalDate: day(15), RenewalDecision: e.DecisionTerminate, DecidedBy: "u1"}, "decision_date"},
		{"decision without decider", Input{RenewalDate: day(15), RenewalDecision: e.DecisionTerminate, DecisionDate: ptr(day(10))}, "decided_by"},
		{"notification after renewal", Input{RenewalDate: day(15), NotificationDate: ptr(day(20))}, "notification_date"},
		{"due before renewal", Input{RenewalDate: day(15), DecisionDueDate: ptr(day(1))}, "decision_due_date"},
		{"new contract without renew", Input{RenewalDate: day(15), NewContractID: ptr(cid)}, "new_contract_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := en.Create(ctx, "u1", cid, tt.in)
			assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: tt.field})
		})
	}

	_, err := en.Create(ctx, "u1", 404, Input{RenewalDate: day(15)})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCreate_LenientDates(t *testing.T) {
	en, s, _ := setup(t, Options{})
	cid := contract(t, s, "ACME-001")

	_, err := en.Create(context.Background(), "u1", cid, Input{RenewalDate: day(15), NotificationDate: ptr(day(20))})
	assert.NoError(t, err)
}

func TestUpdate_DecisionRules(t *testing.T) {
	en, s, _ := setup(t, Options{})
	cid := contract(t, s, "ACME-001")
	next := contract(t, s, "ACME-002")
	ctx := context.Background()

	r, err := en.Create(ctx, "u1", cid, Input{RenewalDate: day(15)})
	require.NoError(t, err)

	renew := e.DecisionRenew
	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{RenewalDecision: &renew, DecisionDate: ptr(day(10)), DecidedBy: ptr("u1")})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "new_contract_id"})

	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{RenewalDecision: &renew, NewContractID: &next, DecidedBy: ptr("u1")})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "decision_date"})

	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{RenewalDecision: &renew, NewContractID: &next, DecisionDate: ptr(day(10))})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "decided_by"})

	missing := int64(999)
	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{RenewalDecision: &renew, NewContractID: &missing, DecisionDate: ptr(day(10)), DecidedBy: ptr("u1")})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "new_contract_id"})

	stored, err := en.Get(ctx, r.RenewalID)
	require.NoError(t, err)
	assert.Equal(t, e.DecisionPending, stored.RenewalDecision)

	got, err := en.Update(ctx, "u1", r.RenewalID, Patch{RenewalDecision: &renew, NewContractID: &next, DecisionDate: ptr(day(10)), DecidedBy: ptr("u1")})
	require.NoError(t, err)
	assert.Equal(t, e.DecisionRenew, got.RenewalDecision)
	assert.Equal(t, next, *got.NewContractID)
}

func TestUpdate_StatusMachine(t *testing.T) {
	en, s, got := setup(t, Options{})
	cid := contract(t, s, "ACME-001")
	ctx := context.Background()

	r, err := en.Create(ctx, "u1", cid, Input{RenewalDate: day(15)})
	require.NoError(t, err)

	closed := e.RenewalDecisionMade
	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{Status: &closed})
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition))

	review := e.RenewalUnderReview
	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{Status: &review})
	require.NoError(t, err)

	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{Status: &closed})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "renewal_decision"})

	terminate := e.DecisionTerminate
	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{Status: &closed, RenewalDecision: &terminate, DecisionDate: ptr(day(12)), DecidedBy: ptr("u2")})
	require.NoError(t, err)

	_, err = en.Update(ctx, "u1", r.RenewalID, Patch{Comments: ptr("late note")})
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition))

	err = en.Delete(ctx, "u1", r.RenewalID)
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "status"})

	assert.Equal(t, []events.Type{events.RenewalCreated, events.RenewalUpdated, events.RenewalUpdated}, *got)
}

func TestDeleteAndAdvance(t *testing.T) {
	en, s, _ := setup(t, Options{})
	cid := contract(t, s, "ACME-001")
	ctx := context.Background()

	r, err := en.Create(ctx, "u1", cid, Input{RenewalDate: day(15)})
	require.NoError(t, err)

	moved, err := en.Advance(ctx, r.RenewalID, e.RenewalUnderReview, "system")
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = en.Advance(ctx, r.RenewalID, e.RenewalUnderReview, "system")
	require.NoError(t, err)
	assert.False(t, moved)

	// still PENDING, so closing is refused without an error
	moved, err = en.Advance(ctx, r.RenewalID, e.RenewalDecisionMade, "system")
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, en.Delete(ctx, "u1", r.RenewalID))
	_, err = en.Get(ctx, r.RenewalID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
