// Package chaos injects controlled failures and latency into the response
// pipeline. A request that draws a failure is answered with the configured
// status instead of a generated response.
package chaos

// Config controls fault injection.
type Config struct {
	// Enabled turns injection on. All other fields are ignored when false.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// FailureRate is the fraction of requests answered with a synthetic
	// failure, in [0.0, 1.0].
	FailureRate float64 `json:"failure_rate" yaml:"failure_rate"`

	// FailureStatus is the status code of injected failures. Zero means 500.
	FailureStatus int `json:"failure_status,omitempty" yaml:"failure_status,omitempty"`

	// Delay configures added latency for every request, failed or not.
	Delay DelayConfig `json:"delay" yaml:"delay"`

	// Seed pins the random source for reproducible runs. Zero means seed
	// from the clock.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// DelayConfig is either a fixed delay or a uniform range. When MaxMS > MinMS
// the delay is drawn uniformly from [MinMS, MaxMS]; otherwise MinMS is used
// as a fixed delay.
type DelayConfig struct {
	MinMS int `json:"min_ms" yaml:"min_ms"`
	MaxMS int `json:"max_ms,omitempty" yaml:"max_ms,omitempty"`
}

// Clamp forces rate and delay values into their valid ranges.
func (c *Config) Clamp() {
	if c.FailureRate < 0 {
		c.FailureRate = 0
	}
	if c.FailureRate > 1 {
		c.FailureRate = 1
	}
	if c.FailureStatus == 0 {
		c.FailureStatus = 500
	}
	if c.Delay.MinMS < 0 {
		c.Delay.MinMS = 0
	}
	if c.Delay.MaxMS < c.Delay.MinMS {
		c.Delay.MaxMS = c.Delay.MinMS
	}
}

// Stats is a snapshot of injection activity since the controller was created
// or last reset.
type Stats struct {
	TotalRequests    uint64 `json:"total_requests"`
	InjectedFailures uint64 `json:"injected_failures"`
	InjectedDelays   uint64 `json:"injected_delays"`
}
