package delivery

import (
	"fmt"
	"time"

	"github.com/jonwraymond/dispatchops/resilience"
	"github.com/jonwraymond/dispatchops/status"
)

// Config holds the orchestrator tunables. Zero values take the defaults
// listed on each field.
type Config struct {
	// MaxAttempts is the number of retries per provider after the first
	// call. A negative value disables retries.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the backoff before the first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	// Default: 10s
	MaxDelay time.Duration

	// MaxRequests is the number of admissions per Window.
	// Default: 100
	MaxRequests int

	// Window is the rate-limit window.
	// Default: 60s
	Window time.Duration

	// CircuitFailureThreshold is the failure count that opens a breaker.
	// Default: 5
	CircuitFailureThreshold int

	// CircuitResetTimeout is how long a breaker stays open.
	// Default: 60s
	CircuitResetTimeout time.Duration

	// AttemptTimeout bounds each provider call. Zero disables it.
	AttemptTimeout time.Duration

	// Retention is how long finished records are kept. A negative value
	// keeps them forever.
	// Default: 24h
	Retention time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:             3,
		InitialDelay:            time.Second,
		MaxDelay:                10 * time.Second,
		MaxRequests:             100,
		Window:                  60 * time.Second,
		CircuitFailureThreshold: 5,
		CircuitResetTimeout:     60 * time.Second,
		Retention:               24 * time.Hour,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Window == 0 {
		c.Window = d.Window
	}
	if c.CircuitFailureThreshold == 0 {
		c.CircuitFailureThreshold = d.CircuitFailureThreshold
	}
	if c.CircuitResetTimeout == 0 {
		c.CircuitResetTimeout = d.CircuitResetTimeout
	}
	if c.Retention == 0 {
		c.Retention = d.Retention
	}
	return c
}

// Validate rejects values that have no meaning.
func (c Config) Validate() error {
	switch {
	case c.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must not be negative", ErrInvalidConfig)
	case c.MaxDelay < 0:
		return fmt.Errorf("%w: max delay must not be negative", ErrInvalidConfig)
	case c.MaxDelay > 0 && c.InitialDelay > c.MaxDelay:
		return fmt.Errorf("%w: initial delay %s exceeds max delay %s", ErrInvalidConfig, c.InitialDelay, c.MaxDelay)
	case c.MaxRequests < 0:
		return fmt.Errorf("%w: max requests must not be negative", ErrInvalidConfig)
	case c.Window < 0:
		return fmt.Errorf("%w: window must not be negative", ErrInvalidConfig)
	case c.CircuitFailureThreshold < 0:
		return fmt.Errorf("%w: circuit failure threshold must not be negative", ErrInvalidConfig)
	case c.CircuitResetTimeout < 0:
		return fmt.Errorf("%w: circuit reset timeout must not be negative", ErrInvalidConfig)
	case c.AttemptTimeout < 0:
		return fmt.Errorf("%w: attempt timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
	}
}

func (c Config) policy() status.Policy {
	if c.Retention < 0 {
		return status.KeepForeverPolicy()
	}
	return status.Policy{Retention: c.Retention}
}
