// Package ai defines the external AI collaborator used for semantic
// matching and response synthesis, and its Anthropic implementation.
//
// The collaborator is an opaque network dependency: every call carries a
// caller-controlled timeout through its context, and every failure mode is
// an explicit error the caller downgrades from. Nothing in this package
// ever blocks a response indefinitely.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// RequestDescription summarizes a live request for the collaborator.
type RequestDescription struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Candidate is one recorded exchange offered for selection, identified by
// its corpus index.
type Candidate struct {
	Index  int    `json:"index"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
	Body   string `json:"body,omitempty"`
	Status int    `json:"status"`
}

// Selection is the collaborator's choice among the offered candidates.
type Selection struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// Synthesis is a collaborator-generated response.
type Synthesis struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body"`
}

// Collaborator is the contract for AI-assisted matching and generation.
// SelectMatch returns (nil, nil) when the collaborator explicitly answers
// that no candidate fits; any other failure is an error.
type Collaborator interface {
	SelectMatch(ctx context.Context, req RequestDescription, candidates []Candidate) (*Selection, error)
	Synthesize(ctx context.Context, req RequestDescription, matched Candidate, responseBody, intent string) (*Synthesis, error)
	Name() string
}

// Sentinel errors for collaborator failures.
var (
	ErrNotConfigured   = errors.New("AI collaborator not configured")
	ErrAPIKeyMissing   = errors.New("API key is required")
	ErrInvalidResponse = errors.New("invalid response from collaborator")
)

// ProviderError wraps a collaborator failure with its provider name.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewCollaborator builds a collaborator from configuration.
func NewCollaborator(cfg *Config) (Collaborator, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicCollaborator(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
}
