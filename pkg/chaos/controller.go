package chaos

import (
	"math/rand"
	"sync"
	"time"
)

// Controller decides, per request, whether to inject a failure and how much
// latency to add. All decisions come from a single seedable random source so
// runs can be replayed exactly.
type Controller struct {
	mu     sync.Mutex
	config Config
	rng    *rand.Rand
	stats  Stats
}

// NewController creates a controller from config. A zero Seed draws a seed
// from the clock.
func NewController(config Config) *Controller {
	config.Clamp()
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Controller{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Enabled reports whether injection is active.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Enabled
}

// ShouldFail draws once against the failure rate and returns the status code
// to serve when the draw injects a failure.
func (c *Controller) ShouldFail() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalRequests++
	if !c.config.Enabled || c.config.FailureRate <= 0 {
		return false, 0
	}
	if c.rng.Float64() >= c.config.FailureRate {
		return false, 0
	}
	c.stats.InjectedFailures++
	return true, c.config.FailureStatus
}

// Delay returns the latency to add to the current request. Zero when
// injection is disabled or no delay is configured.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.Enabled {
		return 0
	}
	minMS, maxMS := c.config.Delay.MinMS, c.config.Delay.MaxMS
	if maxMS <= 0 {
		return 0
	}
	ms := minMS
	if maxMS > minMS {
		ms = minMS + c.rng.Intn(maxMS-minMS+1)
	}
	if ms <= 0 {
		return 0
	}
	c.stats.InjectedDelays++
	return time.Duration(ms) * time.Millisecond
}

// Update replaces the configuration. The random source is reseeded only when
// the new config carries an explicit seed, so live tuning of rates does not
// disturb an ongoing sequence.
func (c *Controller) Update(config Config) {
	config.Clamp()
	c.mu.Lock()
	defer c.mu.Unlock()
	if config.Seed != 0 && config.Seed != c.config.Seed {
		c.rng = rand.New(rand.NewSource(config.Seed))
	}
	c.config = config
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Stats returns a snapshot of injection counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset zeroes the injection counters.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}
