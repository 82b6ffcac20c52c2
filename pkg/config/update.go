package config

import (
	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/chaos"
)

// Update is a partial configuration change applied at runtime. Nil fields
// are left untouched.
type Update struct {
	Strategy          *string           `json:"strategy,omitempty"`
	AcceptThreshold   *float64          `json:"accept_threshold,omitempty"`
	DiffThreshold     *float64          `json:"diff_threshold,omitempty"`
	Weights           *matching.Weights `json:"weights,omitempty"`
	CacheCapacity     *int              `json:"cache_capacity,omitempty"`
	DiffCapacity      *int              `json:"diff_capacity,omitempty"`
	RecordingCapacity *int              `json:"recording_capacity,omitempty"`
	RecordingEnabled  *bool             `json:"recording_enabled,omitempty"`
	FallbackStatus    *int              `json:"fallback_status,omitempty"`
	Chaos             *chaos.Config     `json:"chaos,omitempty"`
}

// Apply merges the update into cfg and reports whether a field that affects
// match outcomes changed, meaning cached matches must be invalidated.
func (u *Update) Apply(cfg *ServerConfig) bool {
	invalidate := false

	if u.Strategy != nil && *u.Strategy != cfg.Strategy {
		cfg.Strategy = *u.Strategy
		invalidate = true
	}
	if u.AcceptThreshold != nil && *u.AcceptThreshold != cfg.AcceptThreshold {
		cfg.AcceptThreshold = *u.AcceptThreshold
		invalidate = true
	}
	if u.DiffThreshold != nil {
		cfg.DiffThreshold = *u.DiffThreshold
	}
	if u.Weights != nil && *u.Weights != cfg.Weights {
		cfg.Weights = *u.Weights
		invalidate = true
	}
	if u.CacheCapacity != nil {
		cfg.CacheCapacity = *u.CacheCapacity
	}
	if u.DiffCapacity != nil {
		cfg.DiffCapacity = *u.DiffCapacity
	}
	if u.RecordingCapacity != nil {
		cfg.RecordingCapacity = *u.RecordingCapacity
	}
	if u.RecordingEnabled != nil {
		cfg.RecordingEnabled = *u.RecordingEnabled
	}
	if u.FallbackStatus != nil {
		cfg.FallbackStatus = *u.FallbackStatus
	}
	if u.Chaos != nil {
		cfg.Chaos = *u.Chaos
	}
	return invalidate
}
