// Package approvals runs reviewer assignments on contracts, renewals and
// SLAs. One state machine serves every object type.
package approvals

import (
	"context"
	"errors"
	"strconv"
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

// SystemActor signs transitions made by the sweeper
const SystemActor = "system"

// Engine runs approval operations
type Engine struct {
	store *sqlserver.Internal
	bus   *events.Bus
	log   logger.Interface
	now   func() time.Time
}

// New wires an Engine
func New(store *sqlserver.Internal, bus *events.Bus, log logger.Interface) *Engine {
	return &Engine{store: store, bus: bus, log: log, now: time.Now}
}

// AssignInput is the body of Assign
type AssignInput struct {
	ObjectType   e.ApprovalObjectType `json:"object_type" binding:"required,notblank"`
	ObjectID     int64                `json:"object_id" binding:"required,gt=0"`
	WorkflowID   string               `json:"workflow_id"`
	WorkflowName string               `json:"workflow_name"`
	AssignerName string               `json:"assigner_name"`
	AssigneeID   string               `json:"assignee_id" binding:"required,notblank"`
	AssigneeName string               `json:"assignee_name"`
	DueDate      time.Time            `json:"due_date" binding:"required"`
}

// ContractTarget reports whether object ids of t are contract ids
func ContractTarget(t e.ApprovalObjectType) bool {
	switch t {
	case e.ObjectContractCreation, e.ObjectContractAmendment, e.ObjectSubcontractCreation:
		return true
	}
	return false
}

// targetExists looks the object up for the types it knows. Unknown types
// are accepted as they are.
func targetExists(tx *sqlserver.Tx, t e.ApprovalObjectType, id int64) (bool, error) {
	switch {
	case ContractTarget(t):
		c, err := tx.GetContract(id)
		if errors.Is(err, sqlserver.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return !c.IsArchived, nil
	case t == e.ObjectContractRenewal:
		_, err := tx.GetRenewal(id)
		if errors.Is(err, sqlserver.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	case t.IsSLA():
		return tx.SLAExists(id)
	}
	return true, nil
}

// Assign creates an ASSIGNED approval on an object
func (en *Engine) Assign(ctx context.Context, assigner string, in AssignInput) (*e.Approval, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	a := &e.Approval{
		ObjectType:   e.ApprovalObjectType(strings.ToUpper(strings.TrimSpace(string(in.ObjectType)))),
		ObjectID:     in.ObjectID,
		WorkflowID:   in.WorkflowID,
		WorkflowName: in.WorkflowName,
		AssignerID:   assigner,
		AssignerName: in.AssignerName,
		AssigneeID:   strings.TrimSpace(in.AssigneeID),
		AssigneeName: in.AssigneeName,
		AssignedDate: en.now().UTC(),
		DueDate:      in.DueDate.UTC(),
		Status:       e.ApprovalAssigned,
	}
	if err := validators.Assignment(a); err != nil {
		return nil, err
	}
	if !validators.KnownObjectType(a.ObjectType) {
		en.log.Warn("approval on unknown object type", map[string]interface{}{
			"object_type": string(a.ObjectType),
			"object_id":   a.ObjectID,
		})
	}

	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		ok, err := targetExists(tx, a.ObjectType, a.ObjectID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.TargetMissing(string(a.ObjectType), a.ObjectID)
		}
		return tx.CreateApproval(a)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", "")
	}

	en.bus.Publish(ctx, approvalEvent(events.ApprovalAssigned, nil, a, assigner))
	return a, nil
}

func approvalEvent(t events.Type, before, after *e.Approval, actor string) events.Event {
	ev := events.New(t, events.EntityApproval, after.ApprovalID, actor).
		WithMeta(events.MetaObjectType, string(after.ObjectType)).
		WithMeta(events.MetaObjectID, strconv.FormatInt(after.ObjectID, 10)).
		WithMeta(events.MetaStatusTo, string(after.Status))
	if ContractTarget(after.ObjectType) {
		ev = ev.WithContract(after.ObjectID)
	}
	if before != nil {
		return ev.WithSnapshots(before, after).WithMeta(events.MetaStatusFrom, string(before.Status))
	}
	return ev.WithSnapshots(nil, after)
}

// Get loads one approval
func (en *Engine) Get(ctx context.Context, id int64) (*e.Approval, error) {
	a, err := en.store.Reader(ctx).GetApproval(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", id)
	}
	return a, nil
}

// Act moves an approval on behalf of its assignee
func (en *Engine) Act(ctx context.Context, id int64, action e.ApprovalStatus, actor, comment string) (*e.Approval, error) {
	action = e.ApprovalStatus(strings.ToUpper(strings.TrimSpace(string(action))))
	if !lifecycle.Approvals.Known(action) {
		return nil, apperrors.Validation("status", "unknown status "+string(action))
	}
	if action == e.ApprovalCommented && strings.TrimSpace(comment) == "" {
		return nil, apperrors.Validation("comment_text", "is required to comment")
	}

	var before, after e.Approval
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		a, err := tx.GetApproval(id)
		if err != nil {
			return err
		}
		if a.AssigneeID != actor {
			return apperrors.Forbidden("only the assignee may act on this approval")
		}
		if lifecycle.Approvals.Terminal(a.Status) || action == e.ApprovalExpired {
			return apperrors.IllegalTransition("approval", string(a.Status), string(action))
		}
		if err := lifecycle.Approvals.Validate(a.Status, action); err != nil {
			return err
		}
		before = *a

		a.Status = action
		if strings.TrimSpace(comment) != "" {
			a.CommentText = comment
		}
		if action == e.ApprovalApproved {
			now := en.now().UTC()
			a.ApprovedDate = &now
		}
		if err := tx.UpdateApproval(a); err != nil {
			return err
		}
		after = *a
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", id)
	}

	en.bus.Publish(ctx, approvalEvent(events.ApprovalActed, &before, &after, actor))
	return &after, nil
}

// Overdue lists open approvals whose due date is before now
func (en *Engine) Overdue(ctx context.Context, now time.Time, limit int) ([]e.Approval, error) {
	out, err := en.store.Reader(ctx).OverdueApprovals(now.UTC(), limit)
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", "")
	}
	if out == nil {
		out = []e.Approval{}
	}
	return out, nil
}

// ExpireOverdue moves overdue approvals to EXPIRED, one transaction each,
// and returns how many moved. Rows changed by someone else in between are
// skipped.
func (en *Engine) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := en.Overdue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, row := range due {
		if err := ctx.Err(); err != nil {
			return expired, apperrors.FromStore(err, "approval", "")
		}
		var before, after e.Approval
		moved := false
		err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
			a, err := tx.GetApproval(row.ApprovalID)
			if err != nil {
				return err
			}
			if !lifecycle.CanSystemExpire(a.Status) || !a.DueDate.Before(now) {
				return nil
			}
			before = *a
			a.Status = e.ApprovalExpired
			if err := tx.UpdateApproval(a); err != nil {
				return err
			}
			after = *a
			moved = true
			return nil
		})
		if err != nil {
			en.log.Warn("approval not expired", map[string]interface{}{
				"approval_id": row.ApprovalID,
				"error":       err.Error(),
			})
			continue
		}
		if moved {
			expired++
			en.bus.Publish(ctx, approvalEvent(events.ApprovalExpired, &before, &after, SystemActor))
		}
	}
	return expired, nil
}

// Page is one page of approvals
type Page struct {
	Approvals []e.Approval `json:"approvals"`
	Total     int64        `json:"total"`
	Page      int          `json:"page"`
	PageSize  int          `json:"page_size"`
}

// List returns a filtered page of approvals, due soonest first
func (en *Engine) List(ctx context.Context, f sqlserver.ApprovalFilter, page, pageSize int) (*Page, error) {
	rows, total, err := en.store.Reader(ctx).ListApprovals(f, page, pageSize)
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", "")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	if rows == nil {
		rows = []e.Approval{}
	}
	return &Page{Approvals: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListAssigned is List restricted to one assignee
func (en *Engine) ListAssigned(ctx context.Context, assignee string, f sqlserver.ApprovalFilter, page, pageSize int) (*Page, error) {
	f.AssigneeID = assignee
	f.AssignerID = ""
	return en.List(ctx, f, page, pageSize)
}

// ListAssigner is List restricted to approvals handed out by assigner
func (en *Engine) ListAssigner(ctx context.Context, assigner string, f sqlserver.ApprovalFilter, page, pageSize int) (*Page, error) {
	f.AssignerID = assigner
	f.AssigneeID = ""
	return en.List(ctx, f, page, pageSize)
}

// Stats summarises approvals matching a filter
type Stats struct {
	Total    int64                      `json:"total"`
	ByStatus map[e.ApprovalStatus]int64 `json:"by_status"`
	Overdue  int64                      `json:"overdue"`
}

// Stats counts approvals per status plus the open ones past due
func (en *Engine) Stats(ctx context.Context, f sqlserver.ApprovalFilter) (*Stats, error) {
	r := en.store.Reader(ctx)
	rows, err := r.ApprovalStats(f)
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", "")
	}
	out := &Stats{ByStatus: make(map[e.ApprovalStatus]int64, len(rows))}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Total
		out.Total += row.Total
	}

	now := en.now().UTC()
	f.DueBefore = &now
	f.Status = []e.ApprovalStatus{e.ApprovalAssigned, e.ApprovalInProgress}
	_, overdue, err := r.ListApprovals(f, 1, 1)
	if err != nil {
		return nil, apperrors.FromStore(err, "approval", "")
	}
	out.Overdue = overdue
	return out, nil
}
