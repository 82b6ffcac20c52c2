package ai

import (
	"os"
	"strings"
	"time"
)

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
)

// Environment variable names.
const (
	EnvProvider = "REPLAYD_AI_PROVIDER"
	EnvAPIKey   = "REPLAYD_AI_API_KEY"
	EnvModel    = "REPLAYD_AI_MODEL"
	EnvEndpoint = "REPLAYD_AI_ENDPOINT"
)

// Defaults.
const (
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultMaxTokens      = 4096
	DefaultTimeout        = 30 * time.Second
)

// Config holds collaborator configuration.
type Config struct {
	// Provider selects the implementation ("anthropic").
	Provider string `json:"provider" yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Endpoint overrides the provider's default API endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// MaxTokens caps the generated output size.
	MaxTokens int `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`

	// Timeout bounds each HTTP call to the provider.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ConfigFromEnv reads collaborator configuration from environment
// variables. Returns nil when no provider is set.
func ConfigFromEnv() *Config {
	provider := os.Getenv(EnvProvider)
	apiKey := os.Getenv(EnvAPIKey)
	if provider == "" && apiKey == "" {
		return nil
	}
	if provider == "" {
		provider = ProviderAnthropic
	}
	return &Config{
		Provider: strings.ToLower(provider),
		APIKey:   apiKey,
		Model:    os.Getenv(EnvModel),
		Endpoint: os.Getenv(EnvEndpoint),
	}
}
