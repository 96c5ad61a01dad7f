package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tprmgrc/pkg/logger"

	"golang.org/x/sync/semaphore"
)

// Mode says where a handler runs
type Mode int

const (
	// Inline handlers run synchronously inside Publish, after commit.
	Inline Mode = iota
	// Deferred handlers run on the bounded worker pool.
	Deferred
)

func (m Mode) String() string {
	if m == Deferred {
		return "deferred"
	}
	return "inline"
}

// Handler reacts to one event. It must be idempotent.
type Handler func(ctx context.Context, ev Event) error

// ErrClosed is returned by Close when called twice
var ErrClosed = errors.New("event bus closed")

type subscription struct {
	name    string
	mode    Mode
	handler Handler
}

// Options configures a Bus
type Options struct {
	// Workers bounds concurrently running deferred handlers.
	Workers int64
	// InlineTimeout and DeferredTimeout bound a single handler run.
	InlineTimeout   time.Duration
	DeferredTimeout time.Duration
}

// Bus dispatches events to subscribed handlers
type Bus struct {
	mu    sync.RWMutex
	subs  map[Type][]subscription
	every []subscription

	sem  *semaphore.Weighted
	opts Options
	log  logger.Interface

	// life orders wg.Add against Close; closed is only set while it is held
	life   sync.Mutex
	wg     sync.WaitGroup
	closed atomic.Bool

	base   context.Context
	cancel context.CancelFunc
}

// NewBus returns a bus. Zero options default to 8 workers, 10s inline
// and 60s deferred timeouts.
func NewBus(opts Options, log logger.Interface) *Bus {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.InlineTimeout <= 0 {
		opts.InlineTimeout = 10 * time.Second
	}
	if opts.DeferredTimeout <= 0 {
		opts.DeferredTimeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:   map[Type][]subscription{},
		sem:    semaphore.NewWeighted(opts.Workers),
		opts:   opts,
		log:    log,
		base:   base,
		cancel: cancel,
	}
}

// Subscribe registers h for events of type t
func (b *Bus) Subscribe(t Type, name string, mode Mode, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], subscription{name: name, mode: mode, handler: h})
}

// SubscribeAll registers h for every event type
func (b *Bus) SubscribeAll(name string, mode Mode, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.every = append(b.every, subscription{name: name, mode: mode, handler: h})
}

// Handlers lists the registered handler names of t, for diagnostics
func (b *Bus) Handlers(t Type) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for _, s := range b.subs[t] {
		out = append(out, s.name)
	}
	for _, s := range b.every {
		out = append(out, s.name)
	}
	return out
}

// Publish delivers committed events. Inline handlers finish before Publish
// returns; deferred ones are scheduled. Handler failures are logged and
// never returned. A nil bus drops events.
func (b *Bus) Publish(ctx context.Context, evs ...Event) {
	if b == nil || b.closed.Load() {
		return
	}
	// the request may end before deferred work does
	detached := context.WithoutCancel(ctx)

	for _, ev := range evs {
		b.mu.RLock()
		subs := make([]subscription, 0, len(b.subs[ev.Type])+len(b.every))
		subs = append(subs, b.subs[ev.Type]...)
		subs = append(subs, b.every...)
		b.mu.RUnlock()

		for _, s := range subs {
			if s.mode == Inline {
				b.run(detached, s, ev, b.opts.InlineTimeout)
				continue
			}
			b.schedule(s, ev)
		}
	}
}

func (b *Bus) schedule(s subscription, ev Event) {
	b.life.Lock()
	if b.closed.Load() {
		b.life.Unlock()
		b.log.Warn("deferred handler dropped, bus closed", map[string]interface{}{
			"handler": s.name,
			"event":   string(ev.Type),
		})
		return
	}
	b.wg.Add(1)
	b.life.Unlock()

	go func() {
		defer b.wg.Done()
		if err := b.sem.Acquire(b.base, 1); err != nil {
			b.log.Warn("deferred handler dropped, bus closing", map[string]interface{}{
				"handler": s.name,
				"event":   string(ev.Type),
			})
			return
		}
		defer b.sem.Release(1)
		b.run(b.base, s, ev, b.opts.DeferredTimeout)
	}()
}

func (b *Bus) run(parent context.Context, s subscription, ev Event, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	started := time.Now()
	err := safeCall(ctx, s.handler, ev)
	fields := map[string]interface{}{
		"handler":     s.name,
		"mode":        s.mode.String(),
		"event":       string(ev.Type),
		"event_id":    ev.ID,
		"entity":      ev.Entity,
		"entity_id":   ev.EntityID,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		b.log.Error("side-effect handler failed", err, fields)
		return
	}
	b.log.Debug("side-effect handler done", fields)
}

func safeCall(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// Wait blocks until every scheduled deferred handler has finished
func (b *Bus) Wait() {
	if b == nil {
		return
	}
	b.wg.Wait()
}

// Close stops accepting events and waits for deferred handlers until ctx
// expires, after which the remaining ones are cancelled.
func (b *Bus) Close(ctx context.Context) error {
	b.life.Lock()
	if b.closed.Load() {
		b.life.Unlock()
		return ErrClosed
	}
	b.closed.Store(true)
	b.life.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		return ctx.Err()
	}
}
