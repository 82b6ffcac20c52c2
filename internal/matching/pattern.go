package matching

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/replayd/pkg/capture"
)

// Capture URLs may declare wildcard tokens in their paths: "*" matches one
// segment, "**" matches all remaining segments, and "{name}" matches one
// segment like "*" while documenting intent. Patterns are compiled once at
// matcher construction.
type compiledPattern struct {
	index     int
	glob      string
	wildcards int
}

var namedParamRe = regexp.MustCompile(`\{[^/}]+\}`)

func compilePatterns(store *capture.Store) []compiledPattern {
	patterns := make([]compiledPattern, store.Len())
	for i := 0; i < store.Len(); i++ {
		path := store.At(i).Path()
		glob := namedParamRe.ReplaceAllString(path, "*")
		patterns[i] = compiledPattern{
			index: i,
			glob:  glob,
			// "**" counts double, making it less specific than "*".
			wildcards: strings.Count(glob, "*"),
		}
	}
	return patterns
}

func (p *compiledPattern) matches(path string) bool {
	if p.wildcards == 0 {
		return p.glob == path
	}
	ok, err := doublestar.Match(p.glob, path)
	return err == nil && ok
}

// patternMatch selects the structurally compatible pattern with the fewest
// wildcards; among equally specific patterns the earliest corpus entry wins.
func (m *Matcher) patternMatch(req *Request) MatchResult {
	candidates := m.store.ByMethod(req.Method)
	if len(candidates) == 0 {
		return noMethodCandidates(StrategyPattern, req.Method)
	}

	bestIdx := -1
	bestWildcards := 0
	for _, idx := range candidates {
		p := &m.patterns[idx]
		if !p.matches(req.Path) {
			continue
		}
		if bestIdx == -1 || p.wildcards < bestWildcards {
			bestIdx = idx
			bestWildcards = p.wildcards
		}
	}
	if bestIdx == -1 {
		return unmatched(StrategyPattern, "no pattern match found")
	}

	// Literal path matches are perfect; wildcard matches score slightly
	// below to keep them distinguishable in diagnostics.
	score := 1.0
	if bestWildcards > 0 {
		score = 0.9
	}
	return MatchResult{
		Matched:  true,
		Index:    bestIdx,
		Exchange: m.store.At(bestIdx),
		Score: ScoreBreakdown{
			Path: score, Query: 1, Header: 1, Body: 1, Total: score,
			Strategy: StrategyPattern,
		},
		Reason: "pattern match",
	}
}
