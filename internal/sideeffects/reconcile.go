package sideeffects

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/events"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// ReconcileWindow bounds how far back questionnaire rows are repointed
const ReconcileWindow = 2 * time.Hour

// MemoryCache is a TermIDCache for a single process
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	adopted string
	expires time.Time
}

// NewMemoryCache returns an empty cache whose entries live for ttl at most
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: map[string]cacheEntry{}, now: time.Now}
}

// RememberTermID stores original -> adopted
func (m *MemoryCache) RememberTermID(_ context.Context, original, adopted string, ttl time.Duration) error {
	if ttl <= 0 || ttl > m.ttl {
		ttl = m.ttl
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.entries {
		if now.After(v.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[original] = cacheEntry{adopted: adopted, expires: now.Add(ttl)}
	return nil
}

// LookupTermID returns the adopted id of original when still cached
func (m *MemoryCache) LookupTermID(_ context.Context, original string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[original]
	if !ok || m.now().After(v.expires) {
		return "", false, nil
	}
	return v.adopted, true, nil
}

// Reconciler repoints questionnaire rows written against a proposed
// term_id that was replaced on insert
type Reconciler struct {
	store *sqlserver.Internal
	cache TermIDCache
	log   logger.Interface
	now   func() time.Time
}

// Handle runs on TermCreated. The substitution reported on the event is
// applied first, then recent orphans are matched through the cache and,
// failing that, by the unix-second prefix of their id when exactly one
// recent term shares it.
func (r *Reconciler) Handle(ctx context.Context, ev events.Event) error {
	since := r.now().Add(-ReconcileWindow)

	if original := ev.Meta[events.MetaOriginalTermID]; original != "" && original != ev.EntityID {
		if err := r.cache.RememberTermID(ctx, original, ev.EntityID, ReconcileWindow); err != nil {
			r.log.Warn("term id not cached", map[string]interface{}{
				"term_id":          ev.EntityID,
				"original_term_id": original,
				"error":            err.Error(),
			})
		}
		var n int64
		err := r.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
			var err error
			n, err = tx.MigrateQuestionnaireTermID(original, ev.EntityID, since)
			return err
		})
		if err != nil {
			return fmt.Errorf("repointing questionnaires of %s: %w", original, err)
		}
		if n > 0 {
			r.log.Info("questionnaire links repointed", map[string]interface{}{
				"term_id":          ev.EntityID,
				"original_term_id": original,
				"rows":             n,
			})
		}
	}

	_, err := r.Orphans(ctx, since)
	return err
}

// Orphans repoints questionnaire rows created since that reference no
// term and returns how many rows moved
func (r *Reconciler) Orphans(ctx context.Context, since time.Time) (int64, error) {
	var moved int64
	err := r.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		orphans, err := tx.OrphanQuestionnaireLinks(since)
		if err != nil || len(orphans) == 0 {
			return err
		}
		recent, err := tx.TermsCreatedSince(since)
		if err != nil {
			return err
		}
		byPrefix := map[string][]string{}
		for _, t := range recent {
			if p, ok := idgen.TimestampPrefix(t.TermID); ok {
				byPrefix[p] = append(byPrefix[p], t.TermID)
			}
		}

		done := map[string]bool{}
		for _, o := range orphans {
			if done[o.TermID] {
				continue
			}
			done[o.TermID] = true

			target, ok, err := r.cache.LookupTermID(ctx, o.TermID)
			if err != nil {
				r.log.Warn("term id cache lookup failed", map[string]interface{}{
					"term_id": o.TermID,
					"error":   err.Error(),
				})
			}
			if !ok {
				p, has := idgen.TimestampPrefix(o.TermID)
				if !has || len(byPrefix[p]) != 1 {
					continue
				}
				target = byPrefix[p][0]
			}
			n, err := tx.MigrateQuestionnaireTermID(o.TermID, target, since)
			if err != nil {
				return err
			}
			moved += n
			r.log.Info("orphan questionnaire links repointed", map[string]interface{}{
				"term_id":          target,
				"original_term_id": o.TermID,
				"rows":             n,
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reconciling orphan questionnaires: %w", err)
	}
	return moved, nil
}
