package idgen

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedGenerator() *Generator {
	g := New()
	g.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC) }
	g.sleep = func(time.Duration) {}
	return g
}

func TestNewStringID_AdoptsFreeProposal(t *testing.T) {
	g := fixedGenerator()

	res, err := g.NewStringID("term", "term_42", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "term_42", res.ID)
	assert.False(t, res.Substituted)
	assert.Empty(t, res.Original)
}

func TestNewStringID_SubstitutesTakenProposal(t *testing.T) {
	g := fixedGenerator()
	taken := map[string]bool{"term_42": true}

	res, err := g.NewStringID("term", "term_42", func(id string) (bool, error) { return taken[id], nil })
	require.NoError(t, err)
	assert.NotEqual(t, "term_42", res.ID)
	assert.True(t, res.Substituted)
	assert.Equal(t, "term_42", res.Original)
	assert.Regexp(t, `^term_1709294400123456_[0-9a-f]{8}$`, res.ID)
}

func TestNewStringID_NoProposalIsNotASubstitution(t *testing.T) {
	g := fixedGenerator()

	res, err := g.NewStringID("clause", "", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, res.Substituted)
	assert.Contains(t, res.ID, "clause_")
}

func TestNewStringID_RetriesWithLongerCandidates(t *testing.T) {
	g := fixedGenerator()
	var seen []string
	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	res, err := g.NewStringID("term", "", func(id string) (bool, error) {
		seen = append(seen, id)
		return len(seen) < 3, nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, seen[2], res.ID)
	assert.Less(t, len(seen[0]), len(seen[1]))
	assert.Less(t, len(seen[1]), len(seen[2]))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, slept)
}

func TestNewStringID_Exhausted(t *testing.T) {
	g := fixedGenerator()
	calls := 0

	_, err := g.NewStringID("term", "term_1", func(string) (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1+g.MaxAttempts, calls)
}

func TestNewStringID_StoreError(t *testing.T) {
	g := fixedGenerator()
	boom := errors.New("boom")

	_, err := g.NewStringID("term", "x", func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestCandidatesAreDistinct(t *testing.T) {
	g := New()
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		c := g.Candidate("term", 0)
		assert.False(t, seen[c], fmt.Sprintf("duplicate candidate %s", c))
		seen[c] = true
	}
}

func TestTimestampPrefix(t *testing.T) {
	tests := []struct {
		id     string
		want   string
		wantOk bool
	}{
		{"term_1709294400123456_abcd", "1709294400", true},
		{"term_1709294400", "1709294400", true},
		{"term_42", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := TimestampPrefix(tt.id)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
