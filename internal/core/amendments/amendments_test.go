package amendments

import (
	"context"
	"errors"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/contracts"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/repositories/sqlserver/sqlservertest"
	"tprmgrc/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	store     *sqlserver.Internal
	contracts *contracts.Engine
	engine    *Engine
	published []events.Type
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: sqlservertest.New(t)}
	bus := events.NewBus(events.Options{}, logger.NewNop())
	bus.SubscribeAll("recorder", events.Inline, func(_ context.Context, ev events.Event) error {
		f.published = append(f.published, ev.Type)
		return nil
	})
	graph := versiongraph.New(idgen.New(), logger.NewNop())
	f.contracts = contracts.New(f.store, graph, bus, logger.NewNop())
	f.engine = New(f.store, graph, bus, logger.NewNop())
	f.engine.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

// seed creates ACME-001 with one term and one clause
func (f *fixture) seed(t *testing.T) *e.Contract {
	t.Helper()
	ctx := context.Background()
	c, err := f.contracts.Create(ctx, "u1", contracts.Input{ContractNumber: "ACME-001", ContractTitle: "Master services"})
	require.NoError(t, err)
	_, err = f.contracts.CreateTerm(ctx, "u1", c.ContractID, contracts.TermInput{TermID: "term_pay", TermCategory: "payment", TermTitle: "Payment", TermText: "net 30"})
	require.NoError(t, err)
	_, err = f.contracts.CreateClause(ctx, "u1", c.ContractID, contracts.ClauseInput{ClauseID: "clause_term", ClauseName: "Termination", ClauseText: "30 days"})
	require.NoError(t, err)
	return c
}

func TestCreateAmendment_InsertsOnlySuppliedRows(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)

	res, err := f.engine.CreateAmendment(context.Background(), "u1", c1.ContractID, Request{
		ContractNumber:  "ACME-001-A1",
		AmendmentNumber: "A1",
		AmendmentReason: "price change",
		Terms:           []contracts.TermInput{{TermID: "t1", TermCategory: "payment", TermTitle: "Payment", TermText: "net 45"}},
		Clauses:         []contracts.ClauseInput{},
	})
	require.NoError(t, err)

	a := res.Contract
	assert.Equal(t, e.KindAmendment, a.ContractKind)
	assert.Equal(t, e.StatusPendingAssignment, a.Status)
	assert.Equal(t, e.StageUnderReview, a.WorkflowStage)
	assert.Equal(t, "ACME-001-A1", a.ContractNumber)
	assert.Equal(t, "1.1", a.VersionNumber.String())
	assert.False(t, res.Fallback)

	require.NotNil(t, res.Amendment)
	assert.Equal(t, a.ContractID, res.Amendment.ContractID)
	assert.Equal(t, c1.ContractID, res.Amendment.MainContractID)
	assert.Equal(t, e.AmendmentPending, res.Amendment.WorkflowStatus)
	assert.Equal(t, e.AffectsBoth, res.Amendment.AffectedArea)

	terms, err := f.contracts.ListTerms(context.Background(), a.ContractID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "t1", terms[0].TermID)
	clauses, err := f.contracts.ListClauses(context.Background(), a.ContractID)
	require.NoError(t, err)
	assert.Empty(t, clauses)

	assert.Contains(t, f.published, events.ContractAmended)
}

func TestCreateAmendment_OmittedDeltasCopyNothing(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)

	res, err := f.engine.CreateAmendment(context.Background(), "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A1", AmendmentNumber: "A1"})
	require.NoError(t, err)

	terms, err := f.contracts.ListTerms(context.Background(), res.Contract.ContractID)
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestCreateAmendment_ChainConsistency(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()

	first, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A1", AmendmentNumber: "A1"})
	require.NoError(t, err)
	second, err := f.engine.CreateAmendment(ctx, "u1", first.Contract.ContractID, Request{ContractNumber: "ACME-001-A2", AmendmentNumber: "A2", VersionType: versiongraph.Major})
	require.NoError(t, err)

	for _, pair := range []struct{ source, amendment *e.Contract }{
		{c1, first.Contract},
		{first.Contract, second.Contract},
	} {
		assert.Equal(t, pair.source.RootID(), *pair.amendment.MainContractID)
		assert.Equal(t, pair.source.ContractID, *pair.amendment.PreviousVersionID)
	}
	assert.Equal(t, "2.0", second.Contract.VersionNumber.String())
	assert.Equal(t, c1.ContractID, second.Amendment.MainContractID)

	list, err := f.engine.List(ctx, second.Contract.ContractID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateAmendment_Validation(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()

	_, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{AmendmentNumber: "A1"})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "contract_number"})

	_, err = f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
		ContractNumber:   "ACME-001-A1",
		AmendmentNumber:  "A1",
		AffectedArea:     e.AffectsTerms,
		AmendedClauseIDs: []string{"clause_term"},
	})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "amended_clause_ids"})

	_, err = f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
		ContractNumber:  "ACME-001-A1",
		AmendmentNumber: "A1",
		Terms:           []contracts.TermInput{{TermCategory: "payment", TermText: "net 15"}, {TermCategory: "sla"}},
	})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "term_text"})

	// nothing from the failed attempt was kept
	_, err = f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A1", AmendmentNumber: "A1"})
	require.NoError(t, err)

	_, err = f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A2", AmendmentNumber: "A1"})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindConflict, Field: "amendment_number"})

	_, err = f.engine.CreateAmendment(ctx, "u1", 404, Request{ContractNumber: "X", AmendmentNumber: "A9"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

// failNthInsert makes the n-th insert into table fail inside the store
func failNthInsert(t *testing.T, db *gorm.DB, table string, n int) {
	t.Helper()
	seen := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		seen++
		if seen == n {
			_ = tx.AddError(errors.New("write failed on " + table))
		}
	})
	require.NoError(t, err)
}

func TestCreateAmendment_FailedRowRollsBackEverything(t *testing.T) {
	terms := []contracts.TermInput{
		{TermID: "t1", TermCategory: "payment", TermText: "net 45"},
		{TermID: "t2", TermCategory: "sla", TermText: "99.9"},
		{TermID: "t3", TermCategory: "liability", TermText: "capped"},
	}
	clauses := []contracts.ClauseInput{
		{ClauseID: "c1", ClauseName: "Exit", ClauseText: "60 days"},
		{ClauseID: "c2", ClauseName: "Audit", ClauseText: "yearly"},
	}

	tests := []struct {
		name  string
		table string
		n     int
	}{
		{"first term", "contract_terms", 1},
		{"second term", "contract_terms", 2},
		{"last term", "contract_terms", 3},
		{"second clause", "contract_clauses", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			c1 := f.seed(t)
			ctx := context.Background()
			count := func(model interface{}, query string, args ...interface{}) int64 {
				var n int64
				require.NoError(t, f.store.DB().Model(model).Where(query, args...).Count(&n).Error)
				return n
			}
			f.published = nil
			failNthInsert(t, f.store.DB(), tt.table, tt.n)

			_, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
				ContractNumber:  "ACME-001-A1",
				AmendmentNumber: "A1",
				AmendmentReason: "price change",
				Terms:           terms,
				Clauses:         clauses,
			})
			require.Error(t, err)

			assert.Zero(t, count(&e.Contract{}, "contract_kind = ?", e.KindAmendment), "no AMENDMENT row")
			assert.Zero(t, count(&e.ContractAmendment{}, "1 = 1"), "no companion record")
			assert.Equal(t, int64(1), count(&e.ContractTerm{}, "1 = 1"), "only the seeded term")
			assert.Equal(t, int64(1), count(&e.ContractClause{}, "1 = 1"), "only the seeded clause")
			assert.Empty(t, f.published, "nothing is published for a rolled back write")
		})
	}
}

func TestCreateAmendment_FallsBackToCustomFields(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()
	require.NoError(t, f.store.DB().Migrator().DropTable(&e.ContractAmendment{}))

	effective := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
		ContractNumber:  "ACME-001-A1",
		AmendmentNumber: "A1",
		AmendmentReason: "scope change",
		ChangesSummary:  "adds hosting",
		EffectiveDate:   &effective,
	})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Nil(t, res.Amendment)

	stored, err := f.contracts.Get(ctx, res.Contract.ContractID)
	require.NoError(t, err)
	info, ok := stored.CustomFields[InfoKey].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "scope change", info["amendment_reason"])
	assert.Equal(t, "adds hosting", info["changes_summary"])
	assert.Equal(t, "2024-07-01T00:00:00Z", info["effective_date"])
	assert.Equal(t, "pending", info["workflow_status"])

	moved, err := f.engine.Advance(ctx, res.Contract.ContractID, e.AmendmentApproved, "system")
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err = f.contracts.Get(ctx, res.Contract.ContractID)
	require.NoError(t, err)
	info = stored.CustomFields[InfoKey].(map[string]interface{})
	assert.Equal(t, "approved", info["workflow_status"])
	assert.NotEmpty(t, info["approval_date"])
}

func TestAdvance_FallbackWriteExpiresLapsedContract(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()
	require.NoError(t, f.store.DB().Migrator().DropTable(&e.ContractAmendment{}))

	res, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
		ContractNumber:  "ACME-001-A1",
		AmendmentNumber: "A1",
		AmendmentReason: "scope change",
	})
	require.NoError(t, err)
	require.True(t, res.Fallback)

	require.NoError(t, f.store.DB().Model(&e.Contract{}).
		Where("contract_id = ?", res.Contract.ContractID).
		Update("end_date", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)).Error)

	moved, err := f.engine.Advance(ctx, res.Contract.ContractID, e.AmendmentUnderReview, "system")
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := f.contracts.Get(ctx, res.Contract.ContractID)
	require.NoError(t, err)
	assert.Equal(t, e.StatusExpired, stored.Status)
	assert.Equal(t, e.StageExpired, stored.WorkflowStage)
	assert.Equal(t, "under_review", stored.CustomFields[InfoKey].(map[string]interface{})["workflow_status"])
}

func TestUpdate_WorkflowRules(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()

	res, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A1", AmendmentNumber: "A1"})
	require.NoError(t, err)
	id := res.Amendment.AmendmentID

	approved := e.AmendmentApproved
	_, err = f.engine.Update(ctx, "u2", id, Patch{WorkflowStatus: &approved})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "approval_date"})

	stored, err := f.engine.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, e.AmendmentPending, stored.WorkflowStatus)

	when := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	got, err := f.engine.Update(ctx, "u2", id, Patch{WorkflowStatus: &approved, ApprovalDate: &when})
	require.NoError(t, err)
	assert.Equal(t, e.AmendmentApproved, got.WorkflowStatus)

	pending := e.AmendmentPending
	_, err = f.engine.Update(ctx, "u2", id, Patch{WorkflowStatus: &pending})
	assert.True(t, apperrors.Is(err, apperrors.KindIllegalTransition))

	_, err = f.engine.Get(ctx, 9999)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestAdvance(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()

	res, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{ContractNumber: "ACME-001-A1", AmendmentNumber: "A1"})
	require.NoError(t, err)
	cid := res.Contract.ContractID

	moved, err := f.engine.Advance(ctx, cid, e.AmendmentUnderReview, "system")
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = f.engine.Advance(ctx, cid, e.AmendmentUnderReview, "system")
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = f.engine.Advance(ctx, cid, e.AmendmentApproved, "system")
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := f.engine.Get(ctx, res.Amendment.AmendmentID)
	require.NoError(t, err)
	assert.Equal(t, e.AmendmentApproved, stored.WorkflowStatus)
	assert.NotNil(t, stored.ApprovalDate)

	moved, err = f.engine.Advance(ctx, cid, e.AmendmentPending, "system")
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestCompareWithPrevious(t *testing.T) {
	f := setup(t)
	c1 := f.seed(t)
	ctx := context.Background()

	title := "Master services, amended"
	res, err := f.engine.CreateAmendment(ctx, "u1", c1.ContractID, Request{
		ContractNumber:  "ACME-001-A1",
		AmendmentNumber: "A1",
		Patch:           contracts.Patch{ContractTitle: &title},
		Terms: []contracts.TermInput{
			{TermCategory: "payment", TermTitle: "Payment", TermText: "net 45"},
			{TermCategory: "sla", TermTitle: "Uptime", TermText: "99.9"},
		},
	})
	require.NoError(t, err)

	cmp, err := f.engine.CompareWithPrevious(ctx, res.Contract.ContractID)
	require.NoError(t, err)
	assert.Equal(t, c1.ContractID, cmp.PreviousID)

	byKey := map[string]Change{}
	for _, ch := range cmp.Contract {
		byKey[ch.Key] = ch
	}
	assert.Equal(t, Modified, byKey["contract_title"].Kind)
	assert.Equal(t, "Master services", byKey["contract_title"].From)
	assert.Equal(t, title, byKey["contract_title"].To)
	assert.Equal(t, Modified, byKey["status"].Kind)
	assert.NotContains(t, byKey, "currency")

	require.Len(t, cmp.Terms, 2)
	assert.Equal(t, Modified, cmp.Terms[0].Kind)
	assert.Equal(t, "payment|payment", cmp.Terms[0].Key)
	assert.Equal(t, "net 30", cmp.Terms[0].From.(TermView).TermText)
	assert.Equal(t, "net 45", cmp.Terms[0].To.(TermView).TermText)
	assert.Equal(t, Added, cmp.Terms[1].Kind)

	require.Len(t, cmp.Clauses, 1)
	assert.Equal(t, Removed, cmp.Clauses[0].Kind)
	assert.Equal(t, "termination", cmp.Clauses[0].Key)

	_, err = f.engine.CompareWithPrevious(ctx, c1.ContractID)
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: "contract_kind"})
}

func TestDiffContracts(t *testing.T) {
	v := 10.0
	prev := ContractView{ContractTitle: "a", Currency: "USD"}
	next := ContractView{ContractTitle: "a", ContractValue: &v}

	changes := DiffContracts(prev, next)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Kind: Added, Key: "contract_value", To: 10.0}, changes[0])
	assert.Equal(t, Change{Kind: Removed, Key: "currency", From: "USD"}, changes[1])
}
