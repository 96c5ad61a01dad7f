// Package renewals records renewal decisions against contracts
package renewals

import (
	"context"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/lifecycle"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// Options tunes validation
type Options struct {
	// StrictDates enforces notification <= renewal <= decision due
	StrictDates bool
}

// Engine runs renewal operations
type Engine struct {
	store *sqlserver.Internal
	bus   *events.Bus
	log   logger.Interface
	opts  Options
}

// New wires an Engine
func New(store *sqlserver.Internal, bus *events.Bus, log logger.Interface, opts Options) *Engine {
	return &Engine{store: store, bus: bus, log: log, opts: opts}
}

// Input is the body of Create
type Input struct {
	RenewalDecision  e.RenewalDecision `json:"renewal_decision" binding:"omitempty,oneof=PENDING RENEW RENEGOTIATE TERMINATE"`
	Status           e.RenewalStatus   `json:"status" binding:"omitempty,oneof=initiated"`
	NotificationDate *time.Time        `json:"notification_date"`
	RenewalDate      time.Time         `json:"renewal_date" binding:"required"`
	DecisionDueDate  *time.Time        `json:"decision_due_date"`
	DecisionDate     *time.Time        `json:"decision_date"`
	DecidedBy        string            `json:"decided_by"`
	NewContractID    *int64            `json:"new_contract_id"`
	Comments         string            `json:"comments"`
}

// Patch is a partial renewal update
type Patch struct {
	RenewalDecision  *e.RenewalDecision `json:"renewal_decision"`
	Status           *e.RenewalStatus   `json:"status"`
	NotificationDate *time.Time         `json:"notification_date"`
	RenewalDate      *time.Time         `json:"renewal_date"`
	DecisionDueDate  *time.Time         `json:"decision_due_date"`
	DecisionDate     *time.Time         `json:"decision_date"`
	DecidedBy        *string            `json:"decided_by"`
	NewContractID    *int64             `json:"new_contract_id"`
	Comments         *string            `json:"comments"`
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// checkRefs verifies the contracts a renewal points at
func checkRefs(tx *sqlserver.Tx, r *e.ContractRenewal) error {
	c, err := tx.GetContract(r.ContractID)
	if err != nil {
		return err
	}
	if c.IsArchived {
		return apperrors.NotFound("contract", r.ContractID)
	}
	if r.NewContractID == nil {
		return nil
	}
	if *r.NewContractID == r.ContractID {
		return apperrors.Validation("new_contract_id", "must differ from contract_id")
	}
	ok, err := tx.ContractExists(*r.NewContractID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validation("new_contract_id", "contract does not exist")
	}
	return nil
}

// Create records a renewal for a live contract. A renewal always starts
// initiated; later statuses are reached through Update.
func (en *Engine) Create(ctx context.Context, actor string, contractID int64, in Input) (*e.ContractRenewal, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	r := &e.ContractRenewal{
		ContractID:       contractID,
		RenewalDecision:  in.RenewalDecision,
		Status:           in.Status,
		NotificationDate: utc(in.NotificationDate),
		RenewalDate:      in.RenewalDate.UTC(),
		DecisionDueDate:  utc(in.DecisionDueDate),
		DecisionDate:     utc(in.DecisionDate),
		DecidedBy:        strings.TrimSpace(in.DecidedBy),
		NewContractID:    in.NewContractID,
		Comments:         in.Comments,
		CreatedBy:        actor,
	}
	if r.RenewalDecision == "" {
		r.RenewalDecision = e.DecisionPending
	}
	if r.Status == "" {
		r.Status = e.RenewalInitiated
	}
	if err := validators.Renewal(r, en.opts.StrictDates); err != nil {
		return nil, err
	}

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if err := checkRefs(tx, r); err != nil {
			return err
		}
		return tx.CreateRenewal(r)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}

	en.bus.Publish(ctx, renewalEvent(events.RenewalCreated, nil, r, actor))
	return r, nil
}

func renewalEvent(t events.Type, before, after *e.ContractRenewal, actor string) events.Event {
	ev := events.New(t, events.EntityRenewal, after.RenewalID, actor).
		WithContract(after.ContractID).
		WithMeta(events.MetaStatusTo, string(after.Status))
	if before != nil {
		ev = ev.WithSnapshots(before, after).WithMeta(events.MetaStatusFrom, string(before.Status))
	} else {
		ev = ev.WithSnapshots(nil, after)
	}
	return ev
}

// Get loads one renewal
func (en *Engine) Get(ctx context.Context, id int64) (*e.ContractRenewal, error) {
	r, err := en.store.Reader(ctx).GetRenewal(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "renewal", id)
	}
	return r, nil
}

// List returns the renewals of a contract, newest first
func (en *Engine) List(ctx context.Context, contractID int64) ([]e.ContractRenewal, error) {
	r := en.store.Reader(ctx)
	ok, err := r.ContractExists(contractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	if !ok {
		return nil, apperrors.NotFound("contract", contractID)
	}
	out, err := r.ListRenewals(contractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	if out == nil {
		out = []e.ContractRenewal{}
	}
	return out, nil
}

// Update applies p to an open renewal
func (en *Engine) Update(ctx context.Context, actor string, id int64, p Patch) (*e.ContractRenewal, error) {
	var before, after e.ContractRenewal
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		r, err := tx.GetRenewal(id)
		if err != nil {
			return err
		}
		before = *r

		to := r.Status
		if p.Status != nil {
			to = *p.Status
		}
		if !lifecycle.Renewals.Known(to) {
			return apperrors.Validation("status", "unknown status "+string(to))
		}
		if lifecycle.Renewals.Terminal(r.Status) {
			return apperrors.IllegalTransition("renewal", string(r.Status), string(to))
		}
		if err := lifecycle.Renewals.Validate(r.Status, to); err != nil {
			return err
		}
		r.Status = to

		if p.RenewalDecision != nil {
			r.RenewalDecision = *p.RenewalDecision
		}
		if p.NotificationDate != nil {
			r.NotificationDate = utc(p.NotificationDate)
		}
		if p.RenewalDate != nil {
			r.RenewalDate = p.RenewalDate.UTC()
		}
		if p.DecisionDueDate != nil {
			r.DecisionDueDate = utc(p.DecisionDueDate)
		}
		if p.DecisionDate != nil {
			r.DecisionDate = utc(p.DecisionDate)
		}
		if p.DecidedBy != nil {
			r.DecidedBy = strings.TrimSpace(*p.DecidedBy)
		}
		if p.NewContractID != nil {
			r.NewContractID = p.NewContractID
		}
		if p.Comments != nil {
			r.Comments = *p.Comments
		}

		if err := validators.Renewal(r, en.opts.StrictDates); err != nil {
			return err
		}
		if err := checkRefs(tx, r); err != nil {
			return err
		}
		if err := tx.UpdateRenewal(r); err != nil {
			return err
		}
		after = *r
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "renewal", id)
	}

	en.bus.Publish(ctx, renewalEvent(events.RenewalUpdated, &before, &after, actor))
	return &after, nil
}

// Delete removes a renewal that is not closed
func (en *Engine) Delete(ctx context.Context, actor string, id int64) error {
	var gone e.ContractRenewal
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		r, err := tx.GetRenewal(id)
		if err != nil {
			return err
		}
		if lifecycle.Renewals.Terminal(r.Status) {
			return apperrors.Validation("status", "a closed renewal cannot be deleted")
		}
		gone = *r
		return tx.DeleteRenewal(id)
	})
	if err != nil {
		return apperrors.FromStore(err, "renewal", id)
	}

	en.bus.Publish(ctx, events.New(events.RenewalDeleted, events.EntityRenewal, id, actor).
		WithContract(gone.ContractID).
		WithSnapshots(&gone, nil))
	return nil
}

// Advance moves a renewal to status when the machine allows it and
// reports whether it moved
func (en *Engine) Advance(ctx context.Context, id int64, status e.RenewalStatus, actor string) (bool, error) {
	var before, after e.ContractRenewal
	moved := false
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		r, err := tx.GetRenewal(id)
		if err != nil {
			return err
		}
		if r.Status == status || !lifecycle.Renewals.Allowed(r.Status, status) {
			return nil
		}
		before = *r
		r.Status = status
		if err := validators.Renewal(r, false); err != nil {
			en.log.Warn("renewal cannot advance yet", map[string]interface{}{
				"renewal_id": id,
				"status":     string(status),
				"error":      err.Error(),
			})
			return nil
		}
		if err := tx.UpdateRenewal(r); err != nil {
			return err
		}
		after = *r
		moved = true
		return nil
	})
	if err != nil {
		return false, apperrors.FromStore(err, "renewal", id)
	}
	if moved {
		en.bus.Publish(ctx, renewalEvent(events.RenewalUpdated, &before, &after, actor))
	}
	return moved, nil
}
