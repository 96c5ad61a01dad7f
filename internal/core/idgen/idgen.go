// Package idgen mints external string identifiers (term_id, clause_id,
// invitation tokens) that stay unique while other writers race for them.
package idgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrExhausted is returned when every candidate collided
var ErrExhausted = errors.New("identifier generator exhausted its attempts")

// ExistsFunc reports whether an id is already taken in the store
type ExistsFunc func(id string) (bool, error)

// Result carries the adopted id and, when it differs, the id the caller proposed
type Result struct {
	ID          string
	Original    string
	Substituted bool
}

// Generator composes prefix + timestamp + random suffix candidates
type Generator struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration

	now   func() time.Time
	sleep func(time.Duration)
	rand  func() string
}

// New returns a generator with 5 attempts and a 100ms initial backoff
func New() *Generator {
	return &Generator{
		MaxAttempts: 5,
		Backoff:     100 * time.Millisecond,
		MaxBackoff:  time.Second,
		now:         time.Now,
		sleep:       time.Sleep,
		rand:        func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// NewStringID adopts proposed when it is free, otherwise generates a fresh id.
// Each retry produces a longer random suffix.
func (g *Generator) NewStringID(prefix, proposed string, exists ExistsFunc) (Result, error) {
	proposed = strings.TrimSpace(proposed)
	if proposed != "" {
		taken, err := exists(proposed)
		if err != nil {
			return Result{}, fmt.Errorf("checking proposed id %q: %w", proposed, err)
		}
		if !taken {
			return Result{ID: proposed}, nil
		}
	}

	delay := g.Backoff
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if attempt > 0 && delay > 0 {
			g.sleep(delay)
			delay *= 2
			if g.MaxBackoff > 0 && delay > g.MaxBackoff {
				delay = g.MaxBackoff
			}
		}

		candidate := g.Candidate(prefix, attempt)
		taken, err := exists(candidate)
		if err != nil {
			return Result{}, fmt.Errorf("checking generated id: %w", err)
		}
		if !taken {
			return Result{ID: candidate, Original: proposed, Substituted: proposed != ""}, nil
		}
	}

	return Result{}, ErrExhausted
}

// Candidate builds one id: prefix_<unix seconds><microseconds>_<random>.
// The random part grows by four characters per attempt.
func (g *Generator) Candidate(prefix string, attempt int) string {
	now := g.now().UTC()
	n := 8 + 4*attempt
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(g.rand())
	}
	suffix := b.String()[:n]

	ts := fmt.Sprintf("%d%06d", now.Unix(), now.Nanosecond()/1000)
	if prefix == "" {
		return ts + "_" + suffix
	}
	return prefix + "_" + ts + "_" + suffix
}

// Token returns an unguessable random token with prefix
func (g *Generator) Token(prefix string) string {
	return prefix + g.rand() + g.rand()[:16]
}

var timestampPrefix = regexp.MustCompile(`(\d{10})`)

// TimestampPrefix extracts the first 10-digit run of an id (unix seconds),
// used to pair ids minted in the same second.
func TimestampPrefix(id string) (string, bool) {
	m := timestampPrefix.FindStringSubmatch(id)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
