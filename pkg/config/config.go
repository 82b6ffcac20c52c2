// Package config defines the server configuration, its file loader, and the
// live-update patch applied through the admin surface.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/ai"
	"github.com/getmockd/replayd/pkg/chaos"
)

// Defaults for fields left unset in files and patches.
const (
	DefaultPort              = 8080
	DefaultAdminEnabled      = true
	DefaultAcceptThreshold   = 0.7
	DefaultDiffThreshold     = 0.8
	DefaultCacheCapacity     = 1000
	DefaultDiffCapacity      = 100
	DefaultRecordingCapacity = 1000
	DefaultFallbackStatus    = 404
	DefaultSemanticTimeoutMS = 10000
)

// ServerConfig is the complete runtime configuration.
type ServerConfig struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the listen port. Zero lets the listener pick a free port.
	Port int `json:"port" yaml:"port"`

	// CaptureFile is the session log loaded at startup. Optional; the
	// corpus can also be loaded through the admin surface.
	CaptureFile string `json:"capture_file,omitempty" yaml:"capture_file,omitempty"`

	// Strategy selects the matching strategy.
	Strategy string `json:"strategy" yaml:"strategy"`

	// AcceptThreshold is the minimum fuzzy score accepted as a match.
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold"`

	// DiffThreshold is the score below which accepted matches are still
	// recorded for review.
	DiffThreshold float64 `json:"diff_threshold" yaml:"diff_threshold"`

	// Weights are the fuzzy component weights. Zero value means defaults.
	Weights matching.Weights `json:"weights" yaml:"weights"`

	// CacheCapacity bounds the match cache. Zero disables caching.
	CacheCapacity int `json:"cache_capacity" yaml:"cache_capacity"`

	// DiffCapacity bounds the diff tracker.
	DiffCapacity int `json:"diff_capacity" yaml:"diff_capacity"`

	// RecordingCapacity bounds the request recording log.
	RecordingCapacity int `json:"recording_capacity" yaml:"recording_capacity"`

	// RecordingEnabled turns the recording log (and the live feed it
	// drives) on and off.
	RecordingEnabled bool `json:"recording_enabled" yaml:"recording_enabled"`

	// FallbackStatus is the status served when nothing matches.
	FallbackStatus int `json:"fallback_status" yaml:"fallback_status"`

	// SemanticTimeoutMS bounds each semantic matching call, in
	// milliseconds.
	SemanticTimeoutMS int `json:"semantic_timeout_ms" yaml:"semantic_timeout_ms"`

	// Chaos configures fault injection.
	Chaos chaos.Config `json:"chaos" yaml:"chaos"`

	// AI configures the model collaborator for semantic matching and
	// response synthesis.
	AI ai.Config `json:"ai" yaml:"ai"`

	// AdminEnabled exposes the admin surface under /__admin__.
	AdminEnabled bool `json:"admin_enabled" yaml:"admin_enabled"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *ServerConfig {
	return &ServerConfig{
		Port:              DefaultPort,
		Strategy:          string(matching.StrategyFuzzy),
		AcceptThreshold:   DefaultAcceptThreshold,
		DiffThreshold:     DefaultDiffThreshold,
		Weights:           matching.DefaultWeights(),
		CacheCapacity:     DefaultCacheCapacity,
		DiffCapacity:      DefaultDiffCapacity,
		RecordingCapacity: DefaultRecordingCapacity,
		RecordingEnabled:  true,
		FallbackStatus:    DefaultFallbackStatus,
		SemanticTimeoutMS: DefaultSemanticTimeoutMS,
		AdminEnabled:      DefaultAdminEnabled,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validation errors.
var (
	ErrInvalidPort      = errors.New("port must be between 0 and 65535")
	ErrInvalidStrategy  = errors.New("unknown matching strategy")
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
)

// Validate checks the configuration for internally consistent values.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if _, err := matching.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Strategy)
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("accept_threshold: %w", ErrInvalidThreshold)
	}
	if c.DiffThreshold < 0 || c.DiffThreshold > 1 {
		return fmt.Errorf("diff_threshold: %w", ErrInvalidThreshold)
	}
	if c.DiffThreshold < c.AcceptThreshold {
		return fmt.Errorf("diff_threshold %.2f below accept_threshold %.2f: %w",
			c.DiffThreshold, c.AcceptThreshold, ErrInvalidThreshold)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if c.FallbackStatus < 100 || c.FallbackStatus > 599 {
		return fmt.Errorf("fallback_status must be a valid HTTP status, got %d", c.FallbackStatus)
	}
	if c.CacheCapacity < 0 || c.DiffCapacity < 0 || c.RecordingCapacity < 0 {
		return errors.New("capacities must not be negative")
	}
	if c.Chaos.FailureRate < 0 || c.Chaos.FailureRate > 1 {
		return fmt.Errorf("chaos failure_rate: %w", ErrInvalidThreshold)
	}
	if c.Chaos.Delay.MaxMS != 0 && c.Chaos.Delay.MaxMS < c.Chaos.Delay.MinMS {
		return errors.New("chaos delay max_ms below min_ms")
	}
	return nil
}

// SemanticTimeout returns the semantic call deadline as a duration.
func (c *ServerConfig) SemanticTimeout() time.Duration {
	if c.SemanticTimeoutMS <= 0 {
		return DefaultSemanticTimeoutMS * time.Millisecond
	}
	return time.Duration(c.SemanticTimeoutMS) * time.Millisecond
}

// Clone returns a deep copy.
func (c *ServerConfig) Clone() *ServerConfig {
	out := *c
	return &out
}
