package contracts

import (
	"context"
	"strings"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
)

// VersionResult is a new version row and what was copied onto it
type VersionResult struct {
	Contract *e.Contract             `json:"contract"`
	Copied   versiongraph.CopyCounts `json:"copied"`
}

// CreateVersion cuts a new version of a contract and copies its terms and
// clauses. The row and every copied child commit together or not at all.
func (en *Engine) CreateVersion(ctx context.Context, actor string, id int64, vt versiongraph.VersionType, p Patch) (*VersionResult, error) {
	var res VersionResult
	var batch events.Batch

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		source, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if source.IsArchived {
			return apperrors.NotFound("contract", id)
		}
		next, counts, err := en.versionOf(tx, source, vt, p, actor)
		if err != nil {
			return err
		}
		res = VersionResult{Contract: next, Copied: counts}
		batch.Add(versionEvents(source, next, counts, actor)...)
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}

	en.bus.Publish(ctx, batch...)
	return &res, nil
}

func (en *Engine) versionOf(tx *sqlserver.Tx, source *e.Contract, vt versiongraph.VersionType, p Patch, actor string) (*e.Contract, versiongraph.CopyCounts, error) {
	next, err := en.graph.CreateVersion(tx, source, versiongraph.Request{
		VersionType: vt,
		Actor:       actor,
		Patch: func(c *e.Contract) error {
			// the number is always derived from the source for explicit versions
			number := c.ContractNumber
			if err := p.Apply(c); err != nil {
				return err
			}
			c.ContractNumber = number
			return validators.Contract(c)
		},
	})
	if err != nil {
		return nil, versiongraph.CopyCounts{}, err
	}
	counts, err := en.graph.CopyTermsAndClauses(tx, source, next)
	if err != nil {
		return nil, counts, err
	}
	return next, counts, nil
}

func versionEvents(source, next *e.Contract, counts versiongraph.CopyCounts, actor string) []events.Event {
	out := []events.Event{
		events.New(events.ContractVersioned, events.EntityContract, next.ContractID, actor).
			WithContract(next.ContractID).
			WithSnapshots(nil, next).
			WithMeta(events.MetaPageKey, PageContracts).
			WithMeta("source_contract_id", itoa(source.ContractID)),
	}
	out = append(out, childEvents(next.ContractID, counts, actor)...)
	return out
}

func childEvents(contractID int64, counts versiongraph.CopyCounts, actor string) []events.Event {
	var out []events.Event
	for _, id := range counts.TermIDs {
		out = append(out, events.NewKeyed(events.TermCreated, events.EntityTerm, id, actor).
			WithContract(contractID).
			WithMeta(events.MetaPageKey, PageTerms))
	}
	for _, id := range counts.ClauseIDs {
		out = append(out, events.NewKeyed(events.ClauseCreated, events.EntityClause, id, actor).
			WithContract(contractID).
			WithMeta(events.MetaPageKey, PageClauses))
	}
	return out
}

// CreateSubcontract inserts a SUBCONTRACT under a live parent
func (en *Engine) CreateSubcontract(ctx context.Context, actor string, parentID int64, in Input) (*e.Contract, error) {
	var sub *e.Contract
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		parent, err := tx.GetContract(parentID)
		if err != nil {
			return err
		}
		sub, err = en.subcontractOf(tx, parent, in, actor)
		return err
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", parentID)
	}

	en.bus.Publish(ctx, createdEvent(sub, actor))
	return sub, nil
}

func (en *Engine) subcontractOf(tx *sqlserver.Tx, parent *e.Contract, in Input, actor string) (*e.Contract, error) {
	if err := validators.Parent(parent, e.KindSubcontract); err != nil {
		return nil, err
	}
	sub, err := in.toContract()
	if err != nil {
		return nil, err
	}
	pid := parent.ContractID
	sub.ContractKind = e.KindSubcontract
	sub.ParentContractID = &pid
	if sub.VendorID == nil {
		sub.VendorID = parent.VendorID
	}
	sub.CreatedBy = actor
	sub.UpdatedBy = actor
	if err := en.insert(tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubcontractResult pairs the new parent version with the subcontract
// created under it
type SubcontractResult struct {
	Parent      *e.Contract             `json:"parent"`
	Subcontract *e.Contract             `json:"subcontract"`
	Copied      versiongraph.CopyCounts `json:"copied"`
}

// CreateSubcontractWithVersioning cuts a new version of the parent and
// attaches the subcontract to it, in one transaction
func (en *Engine) CreateSubcontractWithVersioning(ctx context.Context, actor string, parentID int64, in Input, vt versiongraph.VersionType) (*SubcontractResult, error) {
	var res SubcontractResult
	var batch events.Batch

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		parent, err := tx.GetContract(parentID)
		if err != nil {
			return err
		}
		if err := validators.Parent(parent, e.KindSubcontract); err != nil {
			return err
		}
		next, counts, err := en.versionOf(tx, parent, vt, Patch{}, actor)
		if err != nil {
			return err
		}
		sub, err := en.subcontractOf(tx, next, in, actor)
		if err != nil {
			return err
		}
		res = SubcontractResult{Parent: next, Subcontract: sub, Copied: counts}
		batch.Add(versionEvents(parent, next, counts, actor)...)
		batch.Add(createdEvent(sub, actor))
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", parentID)
	}

	en.bus.Publish(ctx, batch...)
	return &res, nil
}

// Branch is a contract with the rows it owns
type Branch struct {
	Contract e.Contract         `json:"contract"`
	Terms    []e.ContractTerm   `json:"terms"`
	Clauses  []e.ContractClause `json:"clauses"`
}

// Summary aggregates a comprehensive view
type Summary struct {
	TermCount        int            `json:"term_count"`
	ClauseCount      int            `json:"clause_count"`
	SubcontractCount int            `json:"subcontract_count"`
	AmendmentCount   int            `json:"amendment_count"`
	VersionCount     int            `json:"version_count"`
	RiskLevels       map[string]int `json:"risk_levels"`
	LatestVersion    string         `json:"latest_version"`
}

// Comprehensive is a contract, its children and its subcontracts
type Comprehensive struct {
	Branch
	Subcontracts []Branch `json:"subcontracts"`
	Summary      Summary  `json:"summary"`
}

// GetComprehensive loads a contract with its terms, clauses and every
// live subcontract with theirs
func (en *Engine) GetComprehensive(ctx context.Context, id int64) (*Comprehensive, error) {
	r := en.store.Reader(ctx)

	c, err := r.GetContract(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}
	root, err := branchOf(r, *c)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}

	subs, err := r.SubcontractsOf(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}
	out := &Comprehensive{Branch: *root, Subcontracts: []Branch{}}
	for _, s := range subs {
		b, err := branchOf(r, s)
		if err != nil {
			return nil, apperrors.FromStore(err, "contract", s.ContractID)
		}
		out.Subcontracts = append(out.Subcontracts, *b)
	}

	amendments, err := r.AmendmentsOf(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}
	chain, err := r.VersionsOf(c.RootID())
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}

	sum := Summary{
		TermCount:        len(root.Terms),
		ClauseCount:      len(root.Clauses),
		SubcontractCount: len(out.Subcontracts),
		AmendmentCount:   len(amendments),
		VersionCount:     len(chain),
		RiskLevels:       map[string]int{},
		LatestVersion:    c.VersionNumber.String(),
	}
	for _, t := range root.Terms {
		sum.RiskLevels[riskKey(t.RiskLevel)]++
	}
	for _, cl := range root.Clauses {
		sum.RiskLevels[riskKey(cl.RiskLevel)]++
	}
	latest := c.VersionNumber
	for _, v := range chain {
		if v.VersionNumber > latest {
			latest = v.VersionNumber
		}
	}
	sum.LatestVersion = latest.String()
	out.Summary = sum
	return out, nil
}

func branchOf(r *sqlserver.Tx, c e.Contract) (*Branch, error) {
	terms, err := r.ListTerms(c.ContractID)
	if err != nil {
		return nil, err
	}
	clauses, err := r.ListClauses(c.ContractID)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []e.ContractTerm{}
	}
	if clauses == nil {
		clauses = []e.ContractClause{}
	}
	return &Branch{Contract: c, Terms: terms, Clauses: clauses}, nil
}

func riskKey(level string) string {
	if level == "" {
		return "unrated"
	}
	return strings.ToLower(level)
}
