package matching

import (
	"fmt"
	"math"
	"strings"
)

// Strategy selects how candidates are compared against the incoming request.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyFuzzy    Strategy = "fuzzy"
	StrategyPattern  Strategy = "pattern"
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy parses a strategy name, defaulting to fuzzy for empty input.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "fuzzy":
		return StrategyFuzzy, nil
	case "exact":
		return StrategyExact, nil
	case "pattern":
		return StrategyPattern, nil
	case "semantic":
		return StrategySemantic, nil
	default:
		return "", fmt.Errorf("unknown matching strategy %q", s)
	}
}

// Weights distribute the fuzzy total across the four scored dimensions.
// They must sum to 1.0.
type Weights struct {
	Path   float64 `json:"path" yaml:"path"`
	Query  float64 `json:"query" yaml:"query"`
	Header float64 `json:"header" yaml:"header"`
	Body   float64 `json:"body" yaml:"body"`
}

// DefaultWeights returns the standard weighting: path dominates, query next,
// headers and body share the remainder.
func DefaultWeights() Weights {
	return Weights{Path: 0.5, Query: 0.2, Header: 0.15, Body: 0.15}
}

const weightsEpsilon = 1e-9

// Validate checks that each weight is non-negative and the sum is 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"path": w.Path, "query": w.Query, "header": w.Header, "body": w.Body,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if sum := w.Path + w.Query + w.Header + w.Body; math.Abs(sum-1) > weightsEpsilon {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// ScoreBreakdown is the similarity evidence between an incoming request and
// one recorded exchange. Every component and the total live in [0,1].
type ScoreBreakdown struct {
	Path     float64  `json:"path"`
	Query    float64  `json:"query"`
	Header   float64  `json:"header"`
	Body     float64  `json:"body"`
	Total    float64  `json:"total"`
	Strategy Strategy `json:"strategy"`
}

// weightedTotal combines the component scores under the given weights.
func (b ScoreBreakdown) weightedTotal(w Weights) float64 {
	return b.Path*w.Path + b.Query*w.Query + b.Header*w.Header + b.Body*w.Body
}
