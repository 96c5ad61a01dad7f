package versiongraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/repositories/sqlserver/sqlservertest"
	"tprmgrc/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextMinorAndMajor(t *testing.T) {
	tests := []struct {
		in        string
		wantMinor string
		wantMajor string
	}{
		{"1.0", "1.1", "2.0"},
		{"1.1", "1.2", "2.0"},
		{"2.5", "2.6", "3.0"},
		{"1.9", "2.0", "2.0"},
		{"10.3", "10.4", "11.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := e.ParseVersion(tt.in)
			require.NoError(t, err)

			minor, major := NextMinor(v), NextMajor(v)
			assert.Equal(t, tt.wantMinor, minor.String())
			assert.Equal(t, tt.wantMajor, major.String())
			assert.Greater(t, int64(minor), int64(v))
			assert.Greater(t, int64(major), int64(v))
			assert.Equal(t, int64(0), major.Minor())
		})
	}
}

func TestNextIsMonotonicForAllVersions(t *testing.T) {
	for v := e.VersionNumber(1); v < 1000; v++ {
		require.Greater(t, int64(NextMinor(v)), int64(v))
		require.Greater(t, int64(NextMajor(v)), int64(v))
		if v.Minor() < 9 {
			require.Equal(t, v.Major(), NextMinor(v).Major())
		}
	}
}

func TestParseVersionType(t *testing.T) {
	vt, err := ParseVersionType("")
	require.NoError(t, err)
	assert.Equal(t, Minor, vt)

	vt, err = ParseVersionType("major")
	require.NoError(t, err)
	assert.Equal(t, Major, vt)

	_, err = ParseVersionType("patch")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func newGraph() *Graph {
	g := New(idgen.New(), logger.NewNop())
	g.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func seed(t *testing.T, s *sqlserver.Internal) *e.Contract {
	t.Helper()
	c := &e.Contract{
		ContractNumber: "ACME-001",
		ContractTitle:  "Master services",
		ContractKind:   e.KindMain,
		VersionNumber:  e.InitialVersion,
		Status:         e.StatusUnderReview,
		WorkflowStage:  e.StageUnderReview,
		CanBeRestored:  true,
		CustomFields:   e.JSONMap{"owner": "legal"},
	}
	require.NoError(t, s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		if err := tx.CreateContract(c); err != nil {
			return err
		}
		for _, id := range []string{"term_a", "term_b"} {
			if err := tx.CreateTerm(&e.ContractTerm{TermID: id, ContractID: c.ContractID, TermCategory: "payment", TermText: "net 30", VersionNumber: "1.0"}); err != nil {
				return err
			}
		}
		return tx.CreateClause(&e.ContractClause{ClauseID: "clause_a", ContractID: c.ContractID, ClauseName: "termination", ClauseText: "30 days"})
	}))
	return c
}

func TestCreateVersion_MinorCopiesTermsAndClauses(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)

	var next *e.Contract
	var counts CopyCounts
	err := s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		var err error
		next, err = g.CreateVersion(tx, src, Request{VersionType: Minor, Actor: "u1"})
		if err != nil {
			return err
		}
		counts, err = g.CopyTermsAndClauses(tx, src, next)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, "1.1", next.VersionNumber.String())
	assert.Equal(t, "ACME-001-v1.1", next.ContractNumber)
	assert.Equal(t, src.ContractID, *next.PreviousVersionID)
	assert.Equal(t, src.ContractID, *next.MainContractID)
	assert.Equal(t, src.ContractID, *next.ParentContractID)
	assert.Equal(t, 2, counts.Terms)
	assert.Equal(t, 1, counts.Clauses)
	assert.Len(t, counts.TermIDs, 2)

	r := s.Reader(context.Background())
	terms, err := r.ListTerms(next.ContractID)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	for _, term := range terms {
		assert.NotContains(t, []string{"term_a", "term_b"}, term.TermID)
		assert.Equal(t, "1.1", term.VersionNumber)
	}
	clauses, err := r.ListClauses(next.ContractID)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.NotEqual(t, "clause_a", clauses[0].ClauseID)

	stored, err := r.GetContract(next.ContractID)
	require.NoError(t, err)
	assert.Equal(t, e.JSONMap{"owner": "legal"}, stored.CustomFields)
}

func TestCreateVersion_ChainMaximumDrivesNumbering(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)

	var first, second, major *e.Contract
	require.NoError(t, s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		var err error
		if first, err = g.CreateVersion(tx, src, Request{VersionType: Minor}); err != nil {
			return err
		}
		if second, err = g.CreateVersion(tx, src, Request{VersionType: Minor}); err != nil {
			return err
		}
		major, err = g.CreateVersion(tx, second, Request{VersionType: Major})
		return err
	}))

	assert.Equal(t, "1.1", first.VersionNumber.String())
	assert.Equal(t, "1.2", second.VersionNumber.String())
	assert.Equal(t, "2.0", major.VersionNumber.String())
	assert.Equal(t, src.ContractID, *major.MainContractID)
	assert.Equal(t, second.ContractID, *major.PreviousVersionID)
	assert.Equal(t, src.ContractID, *major.ParentContractID)
}

func TestCreateVersion_NumberConflict(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)

	err := s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		_, err := g.CreateVersion(tx, src, Request{Number: "ACME-001"})
		return err
	})
	assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindConflict, Field: "contract_number"})
}

func TestCreateVersion_ArchivedSource(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)
	src.IsArchived = true

	err := s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		_, err := g.CreateVersion(tx, src, Request{})
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCopyTermsAndClauses_FailureRollsBackEverything(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)

	injected := errors.New("disk full")
	inserts := 0
	require.NoError(t, s.DB().Callback().Create().Before("gorm:create").Register("test:fail_second_term", func(db *gorm.DB) {
		if db.Statement.Table != "contract_terms" {
			return
		}
		inserts++
		if inserts == 2 {
			_ = db.AddError(injected)
		}
	}))

	var created int64
	err := s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		next, err := g.CreateVersion(tx, src, Request{})
		if err != nil {
			return err
		}
		created = next.ContractID
		_, err = g.CopyTermsAndClauses(tx, src, next)
		return err
	})
	require.ErrorIs(t, err, injected)

	r := s.Reader(context.Background())
	_, err = r.GetContract(created)
	assert.ErrorIs(t, err, sqlserver.ErrNotFound)
	terms, err := r.ListTerms(created)
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestInsertTermTracked_SubstitutesTakenProposal(t *testing.T) {
	s := sqlservertest.New(t)
	g := newGraph()
	src := seed(t, s)

	var first, second idgen.Result
	require.NoError(t, s.Transaction(context.Background(), func(tx *sqlserver.Tx) error {
		var err error
		first, err = g.InsertTermTracked(tx, &e.ContractTerm{ContractID: src.ContractID, TermCategory: "x", TermText: "y"}, "term_42")
		if err != nil {
			return err
		}
		second, err = g.InsertTermTracked(tx, &e.ContractTerm{ContractID: src.ContractID, TermCategory: "x", TermText: "z"}, "term_42")
		return err
	}))

	assert.Equal(t, "term_42", first.ID)
	assert.False(t, first.Substituted)
	assert.True(t, second.Substituted)
	assert.Equal(t, "term_42", second.Original)
	assert.NotEqual(t, "term_42", second.ID)
}
