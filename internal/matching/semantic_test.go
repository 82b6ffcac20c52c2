package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/ai"
)

// stubCollaborator scripts SelectMatch responses for semantic tests.
type stubCollaborator struct {
	selection *ai.Selection
	err       error
	calls     int
	seen      []ai.Candidate
}

func (s *stubCollaborator) SelectMatch(_ context.Context, _ ai.RequestDescription, candidates []ai.Candidate) (*ai.Selection, error) {
	s.calls++
	s.seen = candidates
	return s.selection, s.err
}

func (s *stubCollaborator) Synthesize(context.Context, ai.RequestDescription, ai.Candidate, string, string) (*ai.Synthesis, error) {
	return nil, ai.ErrNotConfigured
}

func (s *stubCollaborator) Name() string { return "stub" }

func semanticOpts() Options {
	opts := DefaultOptions()
	opts.Strategy = StrategySemantic
	opts.SemanticTimeout = time.Second
	return opts
}

func TestSemanticAcceptsSelection(t *testing.T) {
	store := newStore(t, get("/api/users/42"), get("/api/orders/7"))
	collab := &stubCollaborator{selection: &ai.Selection{Index: 1, Confidence: 0.9}}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/orders/recent", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, 0.9, res.Score.Total)
	assert.Equal(t, StrategySemantic, res.Score.Strategy)
	assert.Equal(t, 1, collab.calls)
}

func TestSemanticDefaultConfidence(t *testing.T) {
	store := newStore(t, get("/api/users/42"))
	collab := &stubCollaborator{selection: &ai.Selection{Index: 0}}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/42", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, defaultSemanticConfidence, res.Score.Total)
}

func TestSemanticErrorFallsBackToFuzzy(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	collab := &stubCollaborator{err: errors.New("model unavailable")}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/2", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, StrategyFuzzy, res.Score.Strategy)
}

func TestSemanticTimeoutFallsBackToFuzzy(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	collab := &stubCollaborator{err: context.DeadlineExceeded}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/2", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, StrategyFuzzy, res.Score.Strategy)
	assert.Equal(t, 0, res.Index)
}

func TestSemanticExplicitNoMatchKeepsDiagnostics(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	collab := &stubCollaborator{selection: nil}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/2", nil, nil, nil), semanticOpts())
	assert.False(t, res.Matched)
	assert.Equal(t, StrategySemantic, res.Score.Strategy)
	// The fuzzy best is still carried for diagnostics.
	assert.Equal(t, 0, res.Index)
	assert.NotNil(t, res.Exchange)
}

func TestSemanticInvalidIndexFallsBackToFuzzy(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	collab := &stubCollaborator{selection: &ai.Selection{Index: 99}}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/2", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, StrategyFuzzy, res.Score.Strategy)
}

func TestSemanticLowConfidenceRejected(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	collab := &stubCollaborator{selection: &ai.Selection{Index: 0, Confidence: 0.4}}
	m := NewMatcher(store, WithCollaborator(collab))

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/completely/different", nil, nil, nil), semanticOpts())
	assert.False(t, res.Matched)
	assert.Equal(t, StrategySemantic, res.Score.Strategy)
	assert.Contains(t, res.Reason, "confidence")
}

func TestSemanticWithoutCollaboratorUsesFuzzy(t *testing.T) {
	store := newStore(t, get("/api/users/1"))
	m := NewMatcher(store)

	res := m.FindMatch(context.Background(),
		NewRequest("GET", "/api/users/2", nil, nil, nil), semanticOpts())
	require.True(t, res.Matched)
	assert.Equal(t, StrategyFuzzy, res.Score.Strategy)
}

func TestSemanticShortlistBounded(t *testing.T) {
	store := newStore(t,
		get("/api/a"), get("/api/b"), get("/api/c"), get("/api/d"),
		get("/api/e"), get("/api/f"), get("/api/g"), get("/api/h"),
		get("/api/i"), get("/api/j"), get("/api/k"), get("/api/l"),
	)
	collab := &stubCollaborator{selection: nil}
	m := NewMatcher(store, WithCollaborator(collab))

	m.FindMatch(context.Background(),
		NewRequest("GET", "/api/a", nil, nil, nil), semanticOpts())
	assert.LessOrEqual(t, len(collab.seen), semanticCandidateLimit)
}
