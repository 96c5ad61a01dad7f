package approvals

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

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	en    *Engine
	store *sqlserver.Internal
	seen  []events.Event
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: sqlservertest.New(t)}
	bus := events.NewBus(events.Options{}, logger.NewNop())
	bus.SubscribeAll("recorder", events.Inline, func(_ context.Context, ev events.Event) error {
		f.seen = append(f.seen, ev)
		return nil
	})
	f.en = New(f.store, bus, logger.NewNop())
	f.en.now = func() time.Time { return now }
	return f
}

func (f *fixture) contract(t *testing.T, number string) int64 {
	t.Helper()
	c := &e.Contract{
		ContractNumber: number,
		ContractTitle:  "x",
		ContractKind:   e.KindMain,
		VersionNumber:  e.InitialVersion,
		Status:         e.StatusPendingAssignment,
		WorkflowStage:  e.StageUnderReview,
	}
	require.NoError(t, f.store.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		return tx.CreateContract(c)
	}))
	return c.ContractID
}

func (f *fixture) sla(t *testing.T) int64 {
	t.Helper()
	s := &e.SLA{SLAName: "uptime", Status: e.SLAPending}
	require.NoError(t, f.store.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		return tx.CreateSLA(s)
	}))
	return s.SLAID
}

func (f *fixture) assign(t *testing.T, objectID int64, assignee string, due time.Time) *e.Approval {
	t.Helper()
	a, err := f.en.Assign(context.Background(), "boss", AssignInput{
		ObjectType: e.ObjectContractAmendment,
		ObjectID:   objectID,
		AssigneeID: assignee,
		DueDate:    due,
	})
	require.NoError(t, err)
	return a
}

func TestAssign(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")

	a := f.assign(t, cid, "U", now.Add(7*24*time.Hour))
	assert.Equal(t, e.ApprovalAssigned, a.Status)
	assert.Equal(t, "boss", a.AssignerID)
	assert.Equal(t, now, a.AssignedDate)
	assert.Equal(t, int64(1), a.RowVersion)

	require.Len(t, f.seen, 1)
	ev := f.seen[0]
	assert.Equal(t, events.ApprovalAssigned, ev.Type)
	assert.Equal(t, cid, ev.ContractID)
	assert.Equal(t, string(e.ObjectContractAmendment), ev.Meta[events.MetaObjectType])
}

func TestAssign_Validation(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")
	ctx := context.Background()
	week := now.Add(7 * 24 * time.Hour)

	tests := []struct {
		name  string
		in    AssignInput
		field string
	}{
		{"object type", AssignInput{ObjectID: cid, AssigneeID: "U", DueDate: week}, "object_type"},
		{"object id", AssignInput{ObjectType: e.ObjectContractCreation, AssigneeID: "U", DueDate: week}, "object_id"},
		{"assignee", AssignInput{ObjectType: e.ObjectContractCreation, ObjectID: cid, DueDate: week}, "assignee_id"},
		{"due date missing", AssignInput{ObjectType: e.ObjectContractCreation, ObjectID: cid, AssigneeID: "U"}, "due_date"},
		{"due date in the past", AssignInput{ObjectType: e.ObjectContractCreation, ObjectID: cid, AssigneeID: "U", DueDate: now.Add(-time.Hour)}, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.en.Assign(ctx, "boss", tt.in)
			assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: tt.field})
		})
	}
	assert.Empty(t, f.seen)
}

func TestAssign_Targets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	week := now.Add(7 * 24 * time.Hour)

	_, err := f.en.Assign(ctx, "boss", AssignInput{ObjectType: e.ObjectContractCreation, ObjectID: 404, AssigneeID: "U", DueDate: week})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindNotFound, Field: "object_id"})

	_, err = f.en.Assign(ctx, "boss", AssignInput{ObjectType: e.ObjectSLACreation, ObjectID: 404, AssigneeID: "U", DueDate: week})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindNotFound, Field: "object_id"})

	_, err = f.en.Assign(ctx, "boss", AssignInput{ObjectType: e.ObjectContractRenewal, ObjectID: 404, AssigneeID: "U", DueDate: week})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindNotFound, Field: "object_id"})

	slaID := f.sla(t)
	a, err := f.en.Assign(ctx, "boss", AssignInput{ObjectType: "sla_creation", ObjectID: slaID, AssigneeID: "U", DueDate: week})
	require.NoError(t, err)
	assert.Equal(t, e.ObjectSLACreation, a.ObjectType)

	_, err = f.en.Assign(ctx, "boss", AssignInput{ObjectType: "VENDOR_ONBOARDING", ObjectID: 77, AssigneeID: "U", DueDate: week})
	assert.NoError(t, err, "unknown object types are accepted")
}

func TestAct_OnlyAssignee(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")
	a := f.assign(t, cid, "U", now.Add(7*24*time.Hour))
	ctx := context.Background()

	for _, action := range []e.ApprovalStatus{e.ApprovalInProgress, e.ApprovalApproved, e.ApprovalCancelled} {
		_, err := f.en.Act(ctx, a.ApprovalID, action, "V", "")
		assert.True(t, apperrors.Is(err, apperrors.KindForbidden), action)
	}

	stored, err := f.en.Get(ctx, a.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, e.ApprovalAssigned, stored.Status)
	assert.Nil(t, stored.ApprovedDate)
	assert.Equal(t, a.RowVersion, stored.RowVersion)
	assert.Equal(t, a.UpdatedAt.Unix(), stored.UpdatedAt.Unix())
	assert.Len(t, f.seen, 1)
}

func TestAct_Transitions(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")
	a := f.assign(t, cid, "U", now.Add(7*24*time.Hour))
	ctx := context.Background()

	_, err := f.en.Act(ctx, a.ApprovalID, e.ApprovalApproved, "U", "")
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition), "ASSIGNED cannot approve directly")

	_, err = f.en.Act(ctx, a.ApprovalID, e.ApprovalCommented, "U", " ")
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "comment_text"})

	_, err = f.en.Act(ctx, a.ApprovalID, "LOST", "U", "")
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "status"})

	_, err = f.en.Act(ctx, a.ApprovalID, e.ApprovalExpired, "U", "")
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition), "only the sweeper expires")

	got, err := f.en.Act(ctx, a.ApprovalID, e.ApprovalCommented, "U", "needs a DPA")
	require.NoError(t, err)
	assert.Equal(t, "needs a DPA", got.CommentText)

	got, err = f.en.Act(ctx, a.ApprovalID, "approved", "U", "")
	require.NoError(t, err)
	assert.Equal(t, e.ApprovalApproved, got.Status)
	require.NotNil(t, got.ApprovedDate)
	assert.Equal(t, now, *got.ApprovedDate)
	assert.Equal(t, "needs a DPA", got.CommentText)

	_, err = f.en.Act(ctx, a.ApprovalID, e.ApprovalApproved, "U", "")
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition), "APPROVED is terminal")

	last := f.seen[len(f.seen)-1]
	assert.Equal(t, events.ApprovalActed, last.Type)
	assert.Equal(t, string(e.ApprovalCommented), last.Meta[events.MetaStatusFrom])
	assert.Equal(t, string(e.ApprovalApproved), last.Meta[events.MetaStatusTo])
}

func TestOverdueAndExpire(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")
	ctx := context.Background()

	late := f.assign(t, cid, "U", now.Add(time.Hour))
	working := f.assign(t, cid, "U", now.Add(2*time.Hour))
	commented := f.assign(t, cid, "U", now.Add(time.Hour))
	f.assign(t, cid, "U", now.Add(48*time.Hour))

	_, err := f.en.Act(ctx, working.ApprovalID, e.ApprovalInProgress, "U", "")
	require.NoError(t, err)
	_, err = f.en.Act(ctx, commented.ApprovalID, e.ApprovalCommented, "U", "hm")
	require.NoError(t, err)

	later := now.Add(3 * time.Hour)
	due, err := f.en.Overdue(ctx, later, 0)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	n, err := f.en.ExpireOverdue(ctx, later, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{late.ApprovalID, working.ApprovalID} {
		got, err := f.en.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, e.ApprovalExpired, got.Status)
	}
	got, err := f.en.Get(ctx, commented.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, e.ApprovalCommented, got.Status)

	n, err = f.en.ExpireOverdue(ctx, later, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.en.Act(ctx, late.ApprovalID, e.ApprovalCancelled, "U", "")
	assert.NoError(t, err, "EXPIRED can still be cancelled")
}

func TestListAndStats(t *testing.T) {
	f := setup(t)
	cid := f.contract(t, "ACME-001")
	slaID := f.sla(t)
	ctx := context.Background()

	f.assign(t, cid, "U", now.Add(time.Hour))
	f.assign(t, cid, "V", now.Add(time.Hour))
	_, err := f.en.Assign(ctx, "other", AssignInput{ObjectType: e.ObjectSLARenewal, ObjectID: slaID, AssigneeID: "U", DueDate: now.Add(time.Hour)})
	require.NoError(t, err)

	page, err := f.en.ListAssigned(ctx, "U", sqlserver.ApprovalFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.en.ListAssigner(ctx, "boss", sqlserver.ApprovalFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.en.List(ctx, sqlserver.ApprovalFilter{OnlySLA: true}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)

	f.en.now = func() time.Time { return now.Add(2 * time.Hour) }
	stats, err := f.en.Stats(ctx, sqlserver.ApprovalFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.ByStatus[e.ApprovalAssigned])
	assert.Equal(t, int64(3), stats.Overdue)
}
