// Package versiongraph materialises new rows of a contract chain and copies
// their terms and clauses.
package versiongraph

import (
	"errors"
	"fmt"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/lifecycle"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// VersionType selects how the version number moves
type VersionType string

const (
	Minor VersionType = "minor"
	Major VersionType = "major"
)

// ParseVersionType accepts "minor" (default when empty) or "major"
func ParseVersionType(s string) (VersionType, error) {
	switch VersionType(s) {
	case "", Minor:
		return Minor, nil
	case Major:
		return Major, nil
	}
	return "", apperrors.Validation("version_type", "must be minor or major")
}

// NextMinor adds 0.1. A minor of 9 carries into the next major.
func NextMinor(v e.VersionNumber) e.VersionNumber {
	return v + 1
}

// NextMajor raises the integer part and zeroes the fraction
func NextMajor(v e.VersionNumber) e.VersionNumber {
	return e.NewVersion(v.Major()+1, 0)
}

// Next applies vt to v
func Next(v e.VersionNumber, vt VersionType) e.VersionNumber {
	if vt == Major {
		return NextMajor(v)
	}
	return NextMinor(v)
}

// VersionedNumber is the contract number of an explicit version row
func VersionedNumber(sourceNumber string, v e.VersionNumber) string {
	return fmt.Sprintf("%s-v%s", sourceNumber, v)
}

// Graph creates version rows inside a caller's transaction
type Graph struct {
	ids *idgen.Generator
	log logger.Interface
	now func() time.Time
}

// New returns a Graph minting ids with ids
func New(ids *idgen.Generator, log logger.Interface) *Graph {
	return &Graph{ids: ids, log: log, now: time.Now}
}

// Request describes a new chain row
type Request struct {
	Kind        e.ContractKind
	VersionType VersionType
	// Number overrides the "{source}-v{version}" contract number.
	Number string
	Actor  string
	// Patch edits the copied row before it is validated and inserted.
	Patch func(c *e.Contract) error
}

// NextVersion computes the version the next row of source's chain gets.
// It starts from the highest version already in the chain so two versions
// cut from the same row never share a number.
func (g *Graph) NextVersion(tx *sqlserver.Tx, source *e.Contract, vt VersionType) (e.VersionNumber, error) {
	chain, err := tx.VersionsOf(source.RootID())
	if err != nil {
		return 0, err
	}
	top := source.VersionNumber
	for _, c := range chain {
		if c.VersionNumber > top {
			top = c.VersionNumber
		}
	}
	return Next(top, vt), nil
}

// CreateVersion inserts a new row copied from source and linked to it
func (g *Graph) CreateVersion(tx *sqlserver.Tx, source *e.Contract, req Request) (*e.Contract, error) {
	if source.IsArchived {
		return nil, apperrors.NotFound("contract", source.ContractID)
	}

	version, err := g.NextVersion(tx, source, req.VersionType)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", source.ContractID)
	}

	next := copyContract(source)
	next.VersionNumber = version
	next.ContractKind = source.ContractKind
	if req.Kind != "" {
		next.ContractKind = req.Kind
	}

	prev := source.ContractID
	parent := source.ContractID
	if source.ParentContractID != nil && *source.ParentContractID != 0 {
		parent = *source.ParentContractID
	}
	root := source.RootID()
	next.PreviousVersionID = &prev
	next.ParentContractID = &parent
	next.MainContractID = &root

	next.ContractNumber = req.Number
	if next.ContractNumber == "" {
		next.ContractNumber = VersionedNumber(source.ContractNumber, version)
	}
	next.CreatedBy = req.Actor
	next.UpdatedBy = req.Actor

	if req.Patch != nil {
		if err := req.Patch(next); err != nil {
			return nil, err
		}
	}

	lifecycle.Derive(next, source.WorkflowStage, g.now())
	if err := validateRow(next); err != nil {
		return nil, err
	}

	taken, err := tx.ContractNumberExists(next.ContractNumber)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", next.ContractNumber)
	}
	if taken {
		return nil, apperrors.Conflict("contract_number", "contract number "+next.ContractNumber+" already exists")
	}

	if err := tx.CreateContract(next); err != nil {
		return nil, apperrors.FromStore(err, "contract", next.ContractNumber)
	}
	return next, nil
}

func validateRow(c *e.Contract) error {
	if c.ContractNumber == "" {
		return apperrors.Validation("contract_number", "is required")
	}
	if c.ContractKind != e.KindMain && c.ParentContractID == nil {
		return apperrors.Validation("parent_contract_id", "is required for "+string(c.ContractKind))
	}
	return nil
}

// copyContract clones every business column of c and resets identity,
// audit and archive state
func copyContract(c *e.Contract) *e.Contract {
	n := *c
	n.ContractID = 0
	n.RowVersion = 1
	n.CreatedAt = time.Time{}
	n.UpdatedAt = time.Time{}

	n.IsArchived = false
	n.ArchivedDate = nil
	n.ArchivedBy = ""
	n.ArchiveReason = ""
	n.ArchiveComments = ""
	n.CanBeRestored = true

	n.InsuranceRequirements = c.InsuranceRequirements.Clone()
	n.DataProtectionClauses = c.DataProtectionClauses.Clone()
	n.CustomFields = c.CustomFields.Clone()
	n.DataInventory = c.DataInventory.Clone()
	return &n
}

// CopyCounts reports how many dependent rows were copied
type CopyCounts struct {
	Terms   int `json:"terms"`
	Clauses int `json:"clauses"`

	TermIDs   []string `json:"-"`
	ClauseIDs []string `json:"-"`
}

// CopyTermsAndClauses copies every term and clause of source onto target
// with fresh ids. Each row is inserted under its own savepoint; an id
// collision is retried with a new id, any other failure aborts the copy
// and the caller's transaction with it.
func (g *Graph) CopyTermsAndClauses(tx *sqlserver.Tx, source, target *e.Contract) (CopyCounts, error) {
	var counts CopyCounts

	terms, err := tx.ListTerms(source.ContractID)
	if err != nil {
		return counts, err
	}
	for i := range terms {
		t := terms[i]
		t.ID = 0
		t.ContractID = target.ContractID
		t.VersionNumber = target.VersionNumber.String()
		t.CreatedAt, t.UpdatedAt = time.Time{}, time.Time{}

		if err := g.InsertTerm(tx, &t, ""); err != nil {
			g.log.Error("copying term failed", err, map[string]interface{}{
				"source_contract_id": source.ContractID,
				"contract_id":        target.ContractID,
				"term_id":            terms[i].TermID,
			})
			return counts, err
		}
		counts.Terms++
		counts.TermIDs = append(counts.TermIDs, t.TermID)
	}

	clauses, err := tx.ListClauses(source.ContractID)
	if err != nil {
		return counts, err
	}
	for i := range clauses {
		c := clauses[i]
		c.ID = 0
		c.ContractID = target.ContractID
		c.VersionNumber = target.VersionNumber.String()
		c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}

		if err := g.InsertClause(tx, &c, ""); err != nil {
			g.log.Error("copying clause failed", err, map[string]interface{}{
				"source_contract_id": source.ContractID,
				"contract_id":        target.ContractID,
				"clause_id":          clauses[i].ClauseID,
			})
			return counts, err
		}
		counts.Clauses++
		counts.ClauseIDs = append(counts.ClauseIDs, c.ClauseID)
	}

	return counts, nil
}

// InsertTerm inserts t with an id minted from proposed. A unique conflict
// on term_id from a writer that won the race after the existence check is
// retried with a fresh id.
func (g *Graph) InsertTerm(tx *sqlserver.Tx, t *e.ContractTerm, proposed string) error {
	_, err := g.InsertTermTracked(tx, t, proposed)
	return err
}

// InsertTermTracked is InsertTerm that also reports which id was adopted
func (g *Graph) InsertTermTracked(tx *sqlserver.Tx, t *e.ContractTerm, proposed string) (idgen.Result, error) {
	return g.insertWithID("term", proposed, tx.ExistsTermID, func(id string) error {
		t.TermID = id
		t.ID = 0
		return tx.Savepoint(func(sp *sqlserver.Tx) error { return sp.CreateTerm(t) })
	})
}

// InsertClause inserts c with an id minted from proposed
func (g *Graph) InsertClause(tx *sqlserver.Tx, c *e.ContractClause, proposed string) error {
	_, err := g.insertWithID("clause", proposed, tx.ExistsClauseID, func(id string) error {
		c.ClauseID = id
		c.ID = 0
		return tx.Savepoint(func(sp *sqlserver.Tx) error { return sp.CreateClause(c) })
	})
	return err
}

func (g *Graph) insertWithID(prefix, proposed string, exists idgen.ExistsFunc, insert func(id string) error) (idgen.Result, error) {
	for attempt := 0; attempt <= g.ids.MaxAttempts; attempt++ {
		res, err := g.ids.NewStringID(prefix, proposed, exists)
		if err != nil {
			return idgen.Result{}, err
		}
		err = insert(res.ID)
		if err == nil {
			if res.Substituted {
				g.log.Info("proposed id was taken, generated a new one", map[string]interface{}{
					"prefix":   prefix,
					"proposed": res.Original,
					"adopted":  res.ID,
				})
			}
			return res, nil
		}
		var unique *sqlserver.UniqueConflictError
		if !errors.As(err, &unique) {
			return idgen.Result{}, err
		}
	}
	return idgen.Result{}, idgen.ErrExhausted
}
