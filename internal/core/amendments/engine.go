// Package amendments creates AMENDMENT rows on a contract chain together
// with their companion records, and compares an amendment against the
// version it replaced.
package amendments

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/contracts"
	"tprmgrc/internal/core/lifecycle"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// InfoKey is the custom_fields key holding amendment metadata when the
// companion record could not be written
const InfoKey = "amendment_info"

// Engine runs amendment operations
type Engine struct {
	store *sqlserver.Internal
	graph *versiongraph.Graph
	bus   *events.Bus
	log   logger.Interface
	now   func() time.Time
}

// New wires an Engine
func New(store *sqlserver.Internal, graph *versiongraph.Graph, bus *events.Bus, log logger.Interface) *Engine {
	return &Engine{store: store, graph: graph, bus: bus, log: log, now: time.Now}
}

// Request is the body of CreateAmendment. Terms and Clauses are inserted on
// the new row as given; nothing is copied from the source.
type Request struct {
	ContractNumber      string                   `json:"contract_number" binding:"required,notblank,max=150"`
	VersionType         versiongraph.VersionType `json:"version_type"`
	AmendmentNumber     string                   `json:"amendment_number"`
	AmendmentDate       *time.Time               `json:"amendment_date"`
	EffectiveDate       *time.Time               `json:"effective_date"`
	AmendmentReason     string                   `json:"amendment_reason"`
	ChangesSummary      string                   `json:"changes_summary"`
	FinancialImpact     float64                  `json:"financial_impact"`
	AffectedArea        e.AffectedArea           `json:"affected_area"`
	AmendedTermIDs      []string                 `json:"amended_term_ids"`
	AmendedClauseIDs    []string                 `json:"amended_clause_ids"`
	SupportingDocuments e.JSONRaw                `json:"supporting_documents"`
	FilePath            string                   `json:"file_path"`

	Patch   contracts.Patch         `json:"contract"`
	Terms   []contracts.TermInput   `json:"terms" binding:"dive"`
	Clauses []contracts.ClauseInput `json:"clauses" binding:"dive"`
}

// Result is what CreateAmendment wrote. Amendment is nil when the
// metadata went to custom_fields instead.
type Result struct {
	Contract  *e.Contract          `json:"contract"`
	Amendment *e.ContractAmendment `json:"amendment,omitempty"`
	Fallback  bool                 `json:"fallback"`
	Terms     []e.ContractTerm     `json:"terms"`
	Clauses   []e.ContractClause   `json:"clauses"`
}

// CreateAmendment versions the source into a PENDING_ASSIGNMENT row of kind
// AMENDMENT and attaches the companion record. Everything commits together.
func (en *Engine) CreateAmendment(ctx context.Context, actor string, sourceID int64, req Request) (*Result, error) {
	if err := validators.Struct(req); err != nil {
		return nil, err
	}

	now := en.now().UTC()
	res := &Result{Terms: []e.ContractTerm{}, Clauses: []e.ContractClause{}}
	var batch events.Batch

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		source, err := tx.GetContract(sourceID)
		if err != nil {
			return err
		}

		next, err := en.graph.CreateVersion(tx, source, versiongraph.Request{
			Kind:        e.KindAmendment,
			VersionType: req.VersionType,
			Number:      strings.TrimSpace(req.ContractNumber),
			Actor:       actor,
			Patch: func(c *e.Contract) error {
				number := c.ContractNumber
				if err := req.Patch.Apply(c); err != nil {
					return err
				}
				c.ContractNumber = number
				c.Status = e.StatusPendingAssignment
				return nil
			},
		})
		if err != nil {
			return err
		}
		res.Contract = next

		for _, in := range req.Terms {
			t := in.Build(next, actor)
			if err := en.graph.InsertTerm(tx, t, strings.TrimSpace(in.TermID)); err != nil {
				return err
			}
			res.Terms = append(res.Terms, *t)
		}
		for _, in := range req.Clauses {
			c := in.Build(next, actor)
			if err := en.graph.InsertClause(tx, c, strings.TrimSpace(in.ClauseID)); err != nil {
				return err
			}
			res.Clauses = append(res.Clauses, *c)
		}

		rec := req.record(next, actor, now)
		if err := validators.Amendment(rec); err != nil {
			return err
		}
		err = tx.Savepoint(func(sp *sqlserver.Tx) error {
			taken, err := sp.AmendmentNumberExists(rec.MainContractID, rec.AmendmentNumber)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.Conflict("amendment_number", "amendment number "+rec.AmendmentNumber+" already exists on this chain")
			}
			return sp.CreateAmendment(rec)
		})
		switch {
		case err == nil:
			res.Amendment = rec
		case fallbackFor(err):
			en.log.Warn("amendment record insert failed, storing metadata on the contract", map[string]interface{}{
				"contract_id":      next.ContractID,
				"amendment_number": rec.AmendmentNumber,
				"error":            err.Error(),
			})
			if next.CustomFields == nil {
				next.CustomFields = e.JSONMap{}
			}
			next.CustomFields[InfoKey] = infoOf(rec)
			if err := tx.UpdateContract(next); err != nil {
				return err
			}
			res.Fallback = true
		default:
			return err
		}

		ev := events.New(events.ContractAmended, events.EntityContract, next.ContractID, actor).
			WithContract(next.ContractID).
			WithSnapshots(nil, next).
			WithMeta(events.MetaPageKey, contracts.PageContracts).
			WithMeta(events.MetaStatusTo, string(next.Status))
		if res.Amendment != nil {
			ev = ev.WithMeta("amendment_id", strconv.FormatInt(res.Amendment.AmendmentID, 10))
		}
		batch.Add(ev)
		for _, t := range res.Terms {
			batch.Add(events.NewKeyed(events.TermCreated, events.EntityTerm, t.TermID, actor).
				WithContract(next.ContractID).
				WithMeta(events.MetaPageKey, contracts.PageTerms))
		}
		for _, c := range res.Clauses {
			batch.Add(events.NewKeyed(events.ClauseCreated, events.EntityClause, c.ClauseID, actor).
				WithContract(next.ContractID).
				WithMeta(events.MetaPageKey, contracts.PageClauses))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", sourceID)
	}

	en.bus.Publish(ctx, batch...)
	return res, nil
}

// fallbackFor reports whether a failed companion insert should fall back
// to custom_fields. Taxonomy errors and unique conflicts are real failures.
func fallbackFor(err error) bool {
	var ae *apperrors.Error
	var unique *sqlserver.UniqueConflictError
	if errors.As(err, &ae) || errors.As(err, &unique) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (req Request) record(next *e.Contract, actor string, now time.Time) *e.ContractAmendment {
	date := now
	if req.AmendmentDate != nil {
		date = req.AmendmentDate.UTC()
	}
	area := req.AffectedArea
	if area == "" {
		area = e.AffectsBoth
	}
	var effective *time.Time
	if req.EffectiveDate != nil {
		t := req.EffectiveDate.UTC()
		effective = &t
	}
	return &e.ContractAmendment{
		ContractID:          next.ContractID,
		MainContractID:      next.RootID(),
		AmendmentNumber:     strings.TrimSpace(req.AmendmentNumber),
		AmendmentDate:       date,
		EffectiveDate:       effective,
		AmendmentReason:     req.AmendmentReason,
		ChangesSummary:      req.ChangesSummary,
		FinancialImpact:     req.FinancialImpact,
		WorkflowStatus:      e.AmendmentPending,
		AffectedArea:        area,
		InitiatedBy:         actor,
		InitiatedDate:       now,
		SupportingDocuments: req.SupportingDocuments,
		AmendedTermIDs:      validators.JoinIDs(req.AmendedTermIDs),
		AmendedClauseIDs:    validators.JoinIDs(req.AmendedClauseIDs),
		FilePath:            req.FilePath,
	}
}

func infoOf(a *e.ContractAmendment) map[string]interface{} {
	info := map[string]interface{}{
		"amendment_number":   a.AmendmentNumber,
		"amendment_date":     a.AmendmentDate.Format(time.RFC3339),
		"amendment_reason":   a.AmendmentReason,
		"changes_summary":    a.ChangesSummary,
		"financial_impact":   a.FinancialImpact,
		"workflow_status":    string(a.WorkflowStatus),
		"affected_area":      string(a.AffectedArea),
		"initiated_by":       a.InitiatedBy,
		"amended_term_ids":   a.AmendedTermIDs,
		"amended_clause_ids": a.AmendedClauseIDs,
	}
	if a.EffectiveDate != nil {
		info["effective_date"] = a.EffectiveDate.Format(time.RFC3339)
	}
	return info
}

// List returns the amendment records of the chain c belongs to
func (en *Engine) List(ctx context.Context, contractID int64) ([]e.ContractAmendment, error) {
	r := en.store.Reader(ctx)
	c, err := r.GetContract(contractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	out, err := r.ListAmendments(c.RootID())
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	if out == nil {
		out = []e.ContractAmendment{}
	}
	return out, nil
}

// Get loads one amendment record
func (en *Engine) Get(ctx context.Context, id int64) (*e.ContractAmendment, error) {
	a, err := en.store.Reader(ctx).GetAmendment(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "amendment", id)
	}
	return a, nil
}

// Patch is a partial amendment update
type Patch struct {
	WorkflowStatus   *e.AmendmentStatus `json:"workflow_status"`
	ApprovalDate     *time.Time         `json:"approval_date"`
	EffectiveDate    *time.Time         `json:"effective_date"`
	AmendmentReason  *string            `json:"amendment_reason"`
	ChangesSummary   *string            `json:"changes_summary"`
	FinancialImpact  *float64           `json:"financial_impact"`
	AffectedArea     *e.AffectedArea    `json:"affected_area"`
	AmendedTermIDs   []string           `json:"amended_term_ids"`
	AmendedClauseIDs []string           `json:"amended_clause_ids"`
	FilePath         *string            `json:"file_path"`
}

// Update applies p to an amendment record and checks its workflow move
func (en *Engine) Update(ctx context.Context, actor string, id int64, p Patch) (*e.ContractAmendment, error) {
	var before, after e.ContractAmendment
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		a, err := tx.GetAmendment(id)
		if err != nil {
			return err
		}
		before = *a

		if p.WorkflowStatus != nil {
			if !lifecycle.Amendments.Known(*p.WorkflowStatus) {
				return apperrors.Validation("workflow_status", "unknown status "+string(*p.WorkflowStatus))
			}
			if err := lifecycle.Amendments.Validate(a.WorkflowStatus, *p.WorkflowStatus); err != nil {
				return err
			}
			a.WorkflowStatus = *p.WorkflowStatus
		}
		if p.ApprovalDate != nil {
			t := p.ApprovalDate.UTC()
			a.ApprovalDate = &t
		}
		if p.EffectiveDate != nil {
			t := p.EffectiveDate.UTC()
			a.EffectiveDate = &t
		}
		if p.AmendmentReason != nil {
			a.AmendmentReason = *p.AmendmentReason
		}
		if p.ChangesSummary != nil {
			a.ChangesSummary = *p.ChangesSummary
		}
		if p.FinancialImpact != nil {
			a.FinancialImpact = *p.FinancialImpact
		}
		if p.AffectedArea != nil {
			a.AffectedArea = *p.AffectedArea
		}
		if p.AmendedTermIDs != nil {
			a.AmendedTermIDs = validators.JoinIDs(p.AmendedTermIDs)
		}
		if p.AmendedClauseIDs != nil {
			a.AmendedClauseIDs = validators.JoinIDs(p.AmendedClauseIDs)
		}
		if p.FilePath != nil {
			a.FilePath = *p.FilePath
		}
		if err := validators.Amendment(a); err != nil {
			return err
		}
		if err := tx.UpdateAmendment(a); err != nil {
			return err
		}
		after = *a
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "amendment", id)
	}

	en.bus.Publish(ctx, amendmentEvent(&before, &after, actor))
	return &after, nil
}

func amendmentEvent(before, after *e.ContractAmendment, actor string) events.Event {
	return events.New(events.AmendmentUpdated, events.EntityAmendment, after.AmendmentID, actor).
		WithContract(after.ContractID).
		WithSnapshots(before, after).
		WithMeta(events.MetaStatusFrom, string(before.WorkflowStatus)).
		WithMeta(events.MetaStatusTo, string(after.WorkflowStatus))
}

// Advance moves the workflow of the amendment attached to contractID to
// status, on the companion record or on custom_fields when the record is
// missing. A move the machine does not allow is skipped and reported false.
func (en *Engine) Advance(ctx context.Context, contractID int64, status e.AmendmentStatus, actor string) (bool, error) {
	now := en.now().UTC()
	var ev *events.Event
	moved := false

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		var a *e.ContractAmendment
		err := tx.Savepoint(func(sp *sqlserver.Tx) error {
			var err error
			a, err = sp.GetAmendmentByContract(contractID)
			return err
		})
		switch {
		case err == nil:
			if a.WorkflowStatus == status || !lifecycle.Amendments.Allowed(a.WorkflowStatus, status) {
				return nil
			}
			before := *a
			a.WorkflowStatus = status
			if status == e.AmendmentApproved && a.ApprovalDate == nil {
				a.ApprovalDate = &now
			}
			if err := tx.UpdateAmendment(a); err != nil {
				return err
			}
			out := amendmentEvent(&before, a, actor)
			ev = &out
			moved = true
			return nil
		case !errors.Is(err, sqlserver.ErrNotFound):
			en.log.Warn("amendment record unreadable, checking custom_fields", map[string]interface{}{
				"contract_id": contractID,
				"error":       err.Error(),
			})
		}

		c, err := tx.GetContract(contractID)
		if err != nil {
			return err
		}
		info, ok := c.CustomFields[InfoKey].(map[string]interface{})
		if !ok {
			return nil
		}
		from := e.AmendmentStatus(stringOf(info["workflow_status"]))
		if from == status || !lifecycle.Amendments.Allowed(from, status) {
			return nil
		}
		info["workflow_status"] = string(status)
		if status == e.AmendmentApproved {
			if _, ok := info["approval_date"]; !ok {
				info["approval_date"] = now.Format(time.RFC3339)
			}
		}
		c.CustomFields[InfoKey] = info
		c.UpdatedBy = actor
		lifecycle.Derive(c, c.WorkflowStage, now)
		if err := tx.UpdateContract(c); err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil {
		return false, apperrors.FromStore(err, "amendment", contractID)
	}
	if ev != nil {
		en.bus.Publish(ctx, *ev)
	}
	return moved, nil
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}
