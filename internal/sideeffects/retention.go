package sideeffects

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
)

// DefaultRetentionYears applies to page keys without their own policy
const DefaultRetentionYears = 7

const retentionEnvPrefix = "RETENTION_YEARS_"

// RetentionEvents are the transitions that stamp a timeline record
var RetentionEvents = []events.Type{
	events.ContractCreated, events.ContractUpdated, events.ContractRestored,
	events.ContractVersioned, events.ContractAmended,
	events.TermCreated, events.TermUpdated,
	events.ClauseCreated, events.ClauseUpdated,
}

// Policy is the number of years rows are kept, per page key
type Policy struct {
	Default   int
	ByPageKey map[string]int
}

// PolicyFromEnv reads RETENTION_YEARS_<PAGEKEY> variables.
// RETENTION_YEARS_DEFAULT overrides the default.
func PolicyFromEnv() Policy {
	p := Policy{Default: DefaultRetentionYears, ByPageKey: map[string]int{}}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, retentionEnvPrefix) {
			continue
		}
		years, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || years <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, retentionEnvPrefix))
		if key == "default" {
			p.Default = years
			continue
		}
		p.ByPageKey[key] = years
	}
	return p
}

func (p Policy) years(pageKey string) int {
	if y, ok := p.ByPageKey[pageKey]; ok && y > 0 {
		return y
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultRetentionYears
}

// PageKeyOf is the page key used when an event carries none
func PageKeyOf(entity string) string {
	switch entity {
	case events.EntityContract:
		return "contracts"
	case events.EntityTerm:
		return "contract_terms"
	case events.EntityClause:
		return "contract_clauses"
	}
	return entity
}

// RetentionExpiry returns the retention years and the expiry of a row of
// entity on pageKey stamped at now
func RetentionExpiry(entity, pageKey string, now time.Time, p Policy) (int, time.Time) {
	if pageKey == "" {
		pageKey = PageKeyOf(entity)
	}
	years := p.years(pageKey)
	return years, now.UTC().AddDate(years, 0, 0)
}

// Retention stamps retention timeline records
type Retention struct {
	store  *sqlserver.Internal
	policy Policy
	now    func() time.Time
}

// Handle upserts the timeline record of the event's row
func (r *Retention) Handle(ctx context.Context, ev events.Event) error {
	pageKey := ev.Meta[events.MetaPageKey]
	if pageKey == "" {
		pageKey = PageKeyOf(ev.Entity)
	}
	now := r.now().UTC()
	years, expiry := RetentionExpiry(ev.Entity, pageKey, now, r.policy)

	row := &e.RetentionTimeline{
		EntityType:      ev.Entity,
		EntityID:        ev.EntityID,
		PageKey:         pageKey,
		RetentionYears:  years,
		RetentionExpiry: expiry,
		StampedAt:       now,
	}
	err := r.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		return tx.UpsertRetention(row)
	})
	if err != nil {
		return fmt.Errorf("stamping retention of %s %s: %w", ev.Entity, ev.EntityID, err)
	}
	return nil
}
