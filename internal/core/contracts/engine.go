// Package contracts implements the contract lifecycle: create, update,
// archive and restore of chain rows, versioning, subcontracts and the
// terms and clauses each row owns.
package contracts

import (
	"context"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/lifecycle"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// Retention page keys
const (
	PageContracts = "contracts"
	PageTerms     = "contract_terms"
	PageClauses   = "contract_clauses"
)

// ReconcileWindow is how far back questionnaire links are repointed when a
// proposed term_id had to be replaced
const ReconcileWindow = 2 * time.Hour

// Engine runs contract operations, one transaction each
type Engine struct {
	store *sqlserver.Internal
	graph *versiongraph.Graph
	bus   *events.Bus
	log   logger.Interface
	now   func() time.Time

	// term creation retries the whole transaction when an id race is lost
	retryBackoff time.Duration
	sleep        func(time.Duration)
}

// New wires an Engine
func New(store *sqlserver.Internal, graph *versiongraph.Graph, bus *events.Bus, log logger.Interface) *Engine {
	return &Engine{
		store:        store,
		graph:        graph,
		bus:          bus,
		log:          log,
		now:          time.Now,
		retryBackoff: 100 * time.Millisecond,
		sleep:        time.Sleep,
	}
}

// Page is one page of a contract listing
type Page struct {
	Contracts []e.Contract `json:"contracts"`
	Total     int64        `json:"total"`
	Page      int          `json:"page"`
	PageSize  int          `json:"page_size"`
}

// List returns a filtered page of contracts
func (en *Engine) List(ctx context.Context, f sqlserver.ContractFilter, page, pageSize int, orderBy string, desc bool) (*Page, error) {
	rows, total, err := en.store.Reader(ctx).ListContracts(f, page, pageSize, orderBy, desc)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", "")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	if rows == nil {
		rows = []e.Contract{}
	}
	return &Page{Contracts: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get loads one contract, archived rows included
func (en *Engine) Get(ctx context.Context, id int64) (*e.Contract, error) {
	c, err := en.store.Reader(ctx).GetContract(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}
	return c, nil
}

// Create inserts a MAIN contract. Status defaults to UNDER_REVIEW.
func (en *Engine) Create(ctx context.Context, actor string, in Input) (*e.Contract, error) {
	c, err := in.toContract()
	if err != nil {
		return nil, err
	}
	c.ContractKind = e.KindMain
	c.CreatedBy = actor
	c.UpdatedBy = actor

	err = en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		return en.insert(tx, c)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", c.ContractNumber)
	}

	en.bus.Publish(ctx, createdEvent(c, actor))
	return c, nil
}

// insert derives, validates and writes a new row
func (en *Engine) insert(tx *sqlserver.Tx, c *e.Contract) error {
	lifecycle.Derive(c, "", en.now())
	if err := validators.Contract(c); err != nil {
		return err
	}
	taken, err := tx.ContractNumberExists(c.ContractNumber)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("contract_number", "contract number "+c.ContractNumber+" already exists")
	}
	return tx.CreateContract(c)
}

func createdEvent(c *e.Contract, actor string) events.Event {
	return events.New(events.ContractCreated, events.EntityContract, c.ContractID, actor).
		WithContract(c.ContractID).
		WithSnapshots(nil, c).
		WithMeta(events.MetaPageKey, PageContracts).
		WithMeta(events.MetaStatusTo, string(c.Status))
}

// Update applies patch to a live contract, checks the status transition and
// re-derives the stage
func (en *Engine) Update(ctx context.Context, actor string, id int64, p Patch) (*e.Contract, error) {
	var before, after e.Contract

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if c.IsArchived {
			return apperrors.NotFound("contract", id)
		}
		before = *c

		if p.RowVersion != nil && *p.RowVersion != c.RowVersion {
			return sqlserver.ErrOptimisticLock
		}
		if err := p.Apply(c); err != nil {
			return err
		}
		if !lifecycle.Contracts.Known(c.Status) {
			return apperrors.Validation("status", "unknown status "+string(c.Status))
		}
		if err := lifecycle.Contracts.Validate(before.Status, c.Status); err != nil {
			return err
		}
		lifecycle.Derive(c, before.WorkflowStage, en.now())
		if err := validators.Contract(c); err != nil {
			return err
		}
		if c.ContractNumber != before.ContractNumber {
			taken, err := tx.ContractNumberExists(c.ContractNumber)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.Conflict("contract_number", "contract number "+c.ContractNumber+" already exists")
			}
		}
		c.UpdatedBy = actor
		if err := tx.UpdateContract(c); err != nil {
			return err
		}
		after = *c
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}

	en.bus.Publish(ctx, statusEvent(events.ContractUpdated, &before, &after, actor))
	return &after, nil
}

func statusEvent(t events.Type, before, after *e.Contract, actor string) events.Event {
	return events.New(t, events.EntityContract, after.ContractID, actor).
		WithContract(after.ContractID).
		WithSnapshots(before, after).
		WithMeta(events.MetaPageKey, PageContracts).
		WithMeta(events.MetaStatusFrom, string(before.Status)).
		WithMeta(events.MetaStatusTo, string(after.Status))
}

// Archive hides a contract. Archiving an archived contract is a no-op.
func (en *Engine) Archive(ctx context.Context, actor string, id int64, reason, comments string, canBeRestored bool) error {
	if reason == "" {
		return apperrors.Validation("archive_reason", "is required")
	}

	var before, after e.Contract
	changed := false
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if c.IsArchived {
			return nil
		}
		before = *c

		now := en.now().UTC()
		c.IsArchived = true
		c.ArchivedDate = &now
		c.ArchivedBy = actor
		c.ArchiveReason = reason
		c.ArchiveComments = comments
		c.CanBeRestored = canBeRestored
		c.UpdatedBy = actor
		lifecycle.Derive(c, before.WorkflowStage, now)

		if err := tx.UpdateContract(c); err != nil {
			return err
		}
		after = *c
		changed = true
		return nil
	})
	if err != nil {
		return apperrors.FromStore(err, "contract", id)
	}

	if changed {
		en.bus.Publish(ctx, statusEvent(events.ContractArchived, &before, &after, actor))
	}
	return nil
}

// Restore brings an archived contract back
func (en *Engine) Restore(ctx context.Context, actor string, id int64) error {
	var before, after e.Contract
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if !c.IsArchived {
			return apperrors.Validation("is_archived", "contract is not archived")
		}
		if !c.CanBeRestored {
			return apperrors.Validation("can_be_restored", "contract was archived as not restorable")
		}
		before = *c

		c.IsArchived = false
		c.ArchivedDate = nil
		c.ArchivedBy = ""
		c.ArchiveReason = ""
		c.ArchiveComments = ""
		c.UpdatedBy = actor
		lifecycle.Derive(c, before.WorkflowStage, en.now())

		if err := tx.UpdateContract(c); err != nil {
			return err
		}
		after = *c
		return nil
	})
	if err != nil {
		return apperrors.FromStore(err, "contract", id)
	}

	en.bus.Publish(ctx, statusEvent(events.ContractRestored, &before, &after, actor))
	return nil
}

// Execute marks an APPROVED contract as signed. The next write derives
// the stage active.
func (en *Engine) Execute(ctx context.Context, actor string, id int64) (*e.Contract, error) {
	var before, after e.Contract
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if c.IsArchived {
			return apperrors.NotFound("contract", id)
		}
		before = *c
		if c.Status != e.StatusApproved || lifecycle.Lapsed(c, en.now()) {
			return apperrors.IllegalTransition("contract", string(c.Status), string(e.StageExecuted))
		}

		now := en.now().UTC()
		c.WorkflowStage = e.StageExecuted
		if c.SignedDate == nil {
			c.SignedDate = &now
		}
		c.UpdatedBy = actor
		if err := tx.UpdateContract(c); err != nil {
			return err
		}
		after = *c
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", id)
	}

	en.bus.Publish(ctx, statusEvent(events.ContractExecuted, &before, &after, actor))
	return &after, nil
}

// ExpireLapsed re-writes live contracts whose end date passed so they
// become EXPIRED. Each row gets its own transaction; failures are logged
// and skipped.
func (en *Engine) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	now := en.now()
	rows, err := en.store.Reader(ctx).LapsedContracts(lifecycle.Today(now), limit)
	if err != nil {
		return 0, apperrors.FromStore(err, "contract", "")
	}

	expired := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return expired, apperrors.FromStore(err, "contract", "")
		}
		id := rows[i].ContractID

		var before, after e.Contract
		err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
			c, err := tx.GetContract(id)
			if err != nil {
				return err
			}
			before = *c
			lifecycle.Derive(c, c.WorkflowStage, now)
			if c.Status == before.Status {
				return nil
			}
			c.UpdatedBy = "system"
			if err := tx.UpdateContract(c); err != nil {
				return err
			}
			after = *c
			return nil
		})
		if err != nil {
			en.log.Warn("expiring lapsed contract failed", map[string]interface{}{
				"contract_id": id,
				"error":       err.Error(),
			})
			continue
		}
		if after.ContractID == 0 {
			continue
		}
		expired++
		en.bus.Publish(ctx, statusEvent(events.ContractExpired, &before, &after, "system"))
	}
	return expired, nil
}
