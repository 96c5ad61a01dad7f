// Package sideeffects holds the handlers that react to committed
// transitions and the wiring that subscribes them to the bus.
package sideeffects

import (
	"context"
	"strconv"
	"time"

	"tprmgrc/internal/core/amendments"
	"tprmgrc/internal/core/renewals"
	"tprmgrc/internal/events"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// TermIDCache remembers which generated term_id replaced a proposed one
type TermIDCache interface {
	RememberTermID(ctx context.Context, original, adopted string, ttl time.Duration) error
	LookupTermID(ctx context.Context, original string) (string, bool, error)
}

// RiskQueue receives risk analysis jobs
type RiskQueue interface {
	EnqueueRiskAnalysis(ctx context.Context, job []byte) error
}

// ContractIndex is the search index of contracts
type ContractIndex interface {
	IndexContract(ctx context.Context, id string, doc map[string]interface{}) error
	DeleteContract(ctx context.Context, id string) error
}

// Journal stores every event once
type Journal interface {
	AppendEvent(ctx context.Context, ev events.Event) error
}

// Deps are the collaborators of the handlers. Cache defaults to an
// in-process cache; Risk, Index and Journal are optional and their handler
// is skipped when nil.
type Deps struct {
	Store      *sqlserver.Internal
	Amendments *amendments.Engine
	Renewals   *renewals.Engine
	Cache      TermIDCache
	Risk       RiskQueue
	Index      ContractIndex
	Journal    Journal
	Policy     Policy
	Log        logger.Interface
	Now        func() time.Time
}

// Register subscribes every handler Deps can serve and returns their names
func Register(bus *events.Bus, d Deps) []string {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cache == nil {
		d.Cache = NewMemoryCache(ReconcileWindow)
	}
	if d.Policy.Default <= 0 {
		d.Policy.Default = DefaultRetentionYears
	}

	var names []string
	sub := func(name string, mode events.Mode, h events.Handler, types ...events.Type) {
		for _, t := range types {
			bus.Subscribe(t, name, mode, h)
		}
		names = append(names, name)
	}

	ret := &Retention{store: d.Store, policy: d.Policy, now: d.Now}
	sub("retention", events.Inline, ret.Handle, RetentionEvents...)

	rec := &Reconciler{store: d.Store, cache: d.Cache, log: d.Log, now: d.Now}
	sub("term_id_reconciliation", events.Deferred, rec.Handle, events.TermCreated)

	if d.Amendments != nil && d.Renewals != nil {
		out := &ApprovalOutcome{store: d.Store, amendments: d.Amendments, renewals: d.Renewals, bus: bus, log: d.Log, now: d.Now}
		sub("approval_outcome", events.Inline, out.Handle, events.ApprovalAssigned, events.ApprovalActed)
	}

	if d.Risk != nil {
		risk := &RiskAnalysis{queue: d.Risk}
		sub("risk_analysis", events.Deferred, risk.Handle, RiskEvents...)
	} else {
		d.Log.Warn("risk analysis queue unavailable, handler not registered")
	}

	if d.Index != nil {
		idx := &Indexer{store: d.Store, index: d.Index}
		sub("contract_indexer", events.Deferred, idx.Handle, IndexEvents...)
	} else {
		d.Log.Warn("search index unavailable, handler not registered")
	}

	if d.Journal != nil {
		j := d.Journal
		bus.SubscribeAll("journal", events.Deferred, func(ctx context.Context, ev events.Event) error {
			return j.AppendEvent(ctx, ev)
		})
		names = append(names, "journal")
	} else {
		d.Log.Warn("event journal unavailable, handler not registered")
	}

	d.Log.Info("side-effect handlers registered", map[string]interface{}{"handlers": names})
	return names
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
