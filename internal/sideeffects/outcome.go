package sideeffects

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tprmgrc/internal/core/amendments"
	"tprmgrc/internal/core/approvals"
	"tprmgrc/internal/core/lifecycle"
	"tprmgrc/internal/core/renewals"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// ApprovalOutcome carries approval decisions over to the approved object
type ApprovalOutcome struct {
	store      *sqlserver.Internal
	amendments *amendments.Engine
	renewals   *renewals.Engine
	bus        *events.Bus
	log        logger.Interface
	now        func() time.Time
}

// Handle reacts to ApprovalAssigned and to ApprovalActed with a final
// decision. Moves the target's machine refuses are skipped.
func (o *ApprovalOutcome) Handle(ctx context.Context, ev events.Event) error {
	objectType := e.ApprovalObjectType(ev.Meta[events.MetaObjectType])
	objectID, err := strconv.ParseInt(ev.Meta[events.MetaObjectID], 10, 64)
	if err != nil {
		return fmt.Errorf("approval event without object id: %w", err)
	}
	status := e.ApprovalStatus(ev.Meta[events.MetaStatusTo])

	switch ev.Type {
	case events.ApprovalAssigned:
		return o.assigned(ctx, objectType, objectID, ev.Actor)
	case events.ApprovalActed:
		if status != e.ApprovalApproved && status != e.ApprovalRejected {
			return nil
		}
		return o.decided(ctx, objectType, objectID, status == e.ApprovalApproved, ev.Actor)
	}
	return nil
}

func (o *ApprovalOutcome) assigned(ctx context.Context, t e.ApprovalObjectType, id int64, actor string) error {
	switch {
	case approvals.ContractTarget(t):
		if err := o.moveContract(ctx, id, e.StatusPendingAssignment, e.StatusUnderReview, actor); err != nil {
			return err
		}
		if t == e.ObjectContractAmendment {
			if _, err := o.amendments.Advance(ctx, id, e.AmendmentUnderReview, actor); err != nil {
				return err
			}
		}
	case t == e.ObjectContractRenewal:
		if _, err := o.renewals.Advance(ctx, id, e.RenewalUnderReview, actor); err != nil {
			return err
		}
	}
	return nil
}

func (o *ApprovalOutcome) decided(ctx context.Context, t e.ApprovalObjectType, id int64, approved bool, actor string) error {
	switch {
	case approvals.ContractTarget(t):
		to := e.StatusRejected
		if approved {
			to = e.StatusApproved
		}
		if err := o.moveContract(ctx, id, e.StatusUnderReview, to, actor); err != nil {
			return err
		}
		if t == e.ObjectContractAmendment {
			next := e.AmendmentRejected
			if approved {
				next = e.AmendmentApproved
			}
			if _, err := o.amendments.Advance(ctx, id, next, actor); err != nil {
				return err
			}
		}
	case t.IsSLA():
		next := e.SLARejected
		if approved {
			next = e.SLAActive
		}
		err := o.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
			_, err := tx.SetSLAStatus(id, next)
			return err
		})
		if err != nil {
			return fmt.Errorf("moving sla %d to %s: %w", id, next, err)
		}
		o.log.Info("sla status set by approval", map[string]interface{}{
			"sla_id": id,
			"status": string(next),
		})
	}
	return nil
}

// moveContract applies from -> to on a live contract and publishes
// ContractUpdated when a row changed. The write runs the same derivation as
// any other contract write, so a lapsed row lands on EXPIRED.
func (o *ApprovalOutcome) moveContract(ctx context.Context, id int64, from, to e.ContractStatus, actor string) error {
	if !lifecycle.Contracts.Allowed(from, to) {
		return nil
	}
	var before, after *e.Contract
	err := o.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := tx.GetContract(id)
		if err != nil {
			return err
		}
		if c.IsArchived || c.Status != from {
			return nil
		}
		next := *c
		next.Status = to
		lifecycle.Derive(&next, c.WorkflowStage, o.now())
		moved, err := tx.SetContractStatus(id, []e.ContractStatus{from}, next.Status, next.WorkflowStage)
		if err != nil || !moved {
			return err
		}
		before = c
		after, err = tx.GetContract(id)
		return err
	})
	if err != nil {
		return fmt.Errorf("moving contract %d to %s: %w", id, to, err)
	}
	if after == nil {
		return nil
	}
	o.bus.Publish(ctx, events.New(events.ContractUpdated, events.EntityContract, id, actor).
		WithContract(id).
		WithSnapshots(before, after).
		WithMeta(events.MetaPageKey, PageKeyOf(events.EntityContract)).
		WithMeta(events.MetaStatusFrom, string(from)).
		WithMeta(events.MetaStatusTo, string(after.Status)))
	return nil
}
