package provider

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// ErrNetwork is the failure reported by Simulated when an attempt fails.
var ErrNetwork = errors.New("network error")

// SimulatedConfig configures a Simulated provider.
type SimulatedConfig struct {
	// Name identifies the provider.
	Name string

	// Reliability is the probability in (0,1] that an attempt succeeds.
	// Default: 0.8 when zero or out of range.
	Reliability float64

	// Latency is how long every attempt takes.
	// Default: 0 (no delay)
	Latency time.Duration

	// Rand returns a value in [0,1). Default: math/rand/v2.Float64
	Rand func() float64

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// Simulated is a provider with fixed latency and random failure.
type Simulated struct {
	config SimulatedConfig
}

// NewSimulated creates a simulated provider.
func NewSimulated(config SimulatedConfig) *Simulated {
	if config.Reliability <= 0 || config.Reliability > 1 {
		config.Reliability = 0.8
	}
	if config.Latency < 0 {
		config.Latency = 0
	}
	if config.Rand == nil {
		// #nosec G404 -- simulated failure, not security sensitive.
		config.Rand = rand.Float64
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Simulated{config: config}
}

// Name returns the provider name.
func (s *Simulated) Name() string { return s.config.Name }

// Reliability returns the configured success probability.
func (s *Simulated) Reliability() float64 { return s.config.Reliability }

// Latency returns the configured per-attempt latency.
func (s *Simulated) Latency() time.Duration { return s.config.Latency }

// Deliver waits for the configured latency, then succeeds with probability
// Reliability.
func (s *Simulated) Deliver(ctx context.Context, msg Message) (*Receipt, error) {
	if s.config.Latency > 0 {
		timer := time.NewTimer(s.config.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if s.config.Rand() > s.config.Reliability {
		return nil, &DeliveryError{Provider: s.config.Name, Err: ErrNetwork}
	}

	return &Receipt{
		ProviderID: s.config.Name,
		MessageID:  s.config.Name + "_" + uuid.NewString(),
		Timestamp:  s.config.Now().UTC(),
		Status:     StatusDelivered,
	}, nil
}

var _ Provider = (*Simulated)(nil)
