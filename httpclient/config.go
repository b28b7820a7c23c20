// Package httpclient provides a configurable JSON-oriented HTTP client with
// built-in retry, circuit breaking, and rate limiting. The registry client,
// config client, and admin poller all speak to their peers through it.
package httpclient

import (
	"fmt"
	"time"

	"github.com/dkoca/meshkit/resilience"
)

// Config holds HTTP client configuration.
type Config struct {
	// BaseURL is prepended to request paths (e.g. "http://localhost:8761").
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are added to every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Retry enables retry with backoff when set.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`
	// CircuitBreaker enables circuit breaking when set.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	// RateLimiter enables client-side rate limiting when set.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "meshkit-httpclient"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}
