package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getmockd/replayd/pkg/ai"
	"github.com/getmockd/replayd/pkg/capture"
)

// MatchResult is the outcome of matching one incoming request against the
// corpus. When Matched is false the best-scoring candidate (if any) is still
// carried for diagnostics; Index is -1 and Exchange nil when no candidate
// existed at all.
type MatchResult struct {
	Matched  bool
	Index    int
	Exchange *capture.Exchange
	Score    ScoreBreakdown
	Reason   string
}

// Options carry the per-request matching policy. They are passed on every
// call so a runtime config change needs no matcher rebuild.
type Options struct {
	Strategy        Strategy
	AcceptThreshold float64
	Weights         Weights
	SemanticTimeout time.Duration
}

// DefaultOptions returns the standard policy: fuzzy matching, accept
// threshold 0.7, default weights.
func DefaultOptions() Options {
	return Options{
		Strategy:        StrategyFuzzy,
		AcceptThreshold: 0.7,
		Weights:         DefaultWeights(),
		SemanticTimeout: 10 * time.Second,
	}
}

// Matcher finds the recorded exchange that best represents a live request.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	store    *capture.Store
	patterns []compiledPattern
	collab   ai.Collaborator
	log      *slog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithCollaborator sets the AI collaborator used by the semantic strategy.
func WithCollaborator(c ai.Collaborator) MatcherOption {
	return func(m *Matcher) { m.collab = c }
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMatcher builds a matcher over an immutable corpus. Wildcard patterns in
// capture URLs are compiled once here.
func NewMatcher(store *capture.Store, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.patterns = compilePatterns(store)
	return m
}

// FindMatch runs the configured strategy against the corpus. It never
// returns an error: an empty corpus or an absent method yields an unmatched
// result, and a failing AI collaborator silently downgrades to fuzzy.
func (m *Matcher) FindMatch(ctx context.Context, req *Request, opts Options) MatchResult {
	switch opts.Strategy {
	case StrategyExact:
		return m.exactMatch(req)
	case StrategyPattern:
		return m.patternMatch(req)
	case StrategySemantic:
		return m.semanticMatch(ctx, req, opts)
	default:
		return m.fuzzyMatch(req, opts)
	}
}

func unmatched(strategy Strategy, reason string) MatchResult {
	return MatchResult{
		Matched: false,
		Index:   -1,
		Score:   ScoreBreakdown{Strategy: strategy},
		Reason:  reason,
	}
}

func noMethodCandidates(strategy Strategy, method string) MatchResult {
	return unmatched(strategy, fmt.Sprintf("no capture with method %s", method))
}
