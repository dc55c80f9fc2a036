package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Descriptor is a registered provider plus its counters and pacing settings.
type Descriptor struct {
	provider Provider

	// RatePerSecond paces calls into the provider when positive.
	RatePerSecond float64
	// Burst is the pacing burst size. Default: 1 when pacing is enabled.
	Burst int

	requests  atomic.Int64
	successes atomic.Int64
}

// DescriptorOption configures a Descriptor at registration.
type DescriptorOption func(*Descriptor)

// WithRate paces calls into the provider at rps with the given burst.
func WithRate(rps float64, burst int) DescriptorOption {
	return func(d *Descriptor) {
		d.RatePerSecond = rps
		d.Burst = burst
	}
}

// Name returns the provider name.
func (d *Descriptor) Name() string { return d.provider.Name() }

// Provider returns the wrapped provider.
func (d *Descriptor) Provider() Provider { return d.provider }

// Deliver calls the provider and updates the counters. A nil receipt with a
// nil error counts as a failed attempt.
func (d *Descriptor) Deliver(ctx context.Context, msg Message) (*Receipt, error) {
	d.requests.Add(1)
	receipt, err := d.provider.Deliver(ctx, msg)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, &DeliveryError{Provider: d.Name(), Err: ErrNilReceipt}
	}
	d.successes.Add(1)
	return receipt, nil
}

// Stats returns a snapshot of the descriptor counters.
func (d *Descriptor) Stats() Stats {
	return Stats{
		Name:      d.Name(),
		Requests:  d.requests.Load(),
		Successes: d.successes.Load(),
	}
}

// Stats holds cumulative per-provider counters.
type Stats struct {
	Name      string `json:"name"`
	Requests  int64  `json:"request_count"`
	Successes int64  `json:"success_count"`
}

// Registry is an ordered set of providers. Order is registration order and
// is the order the orchestrator fails over in.
type Registry struct {
	mu          sync.RWMutex
	descriptors []*Descriptor
	byName      map[string]*Descriptor
}

// NewRegistry creates a registry holding providers in the given order.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a provider to the failover order.
func (r *Registry) Register(p Provider, opts ...DescriptorOption) error {
	if p == nil {
		return errors.New("provider: nil provider")
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return errors.New("provider: name is required")
	}

	d := &Descriptor{provider: p}
	for _, opt := range opts {
		opt(d)
	}
	if d.RatePerSecond > 0 && d.Burst <= 0 {
		d.Burst = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("provider: %q already registered", name)
	}
	r.byName[name] = d
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Descriptors returns the registered descriptors in failover order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[strings.TrimSpace(name)]
	return d, ok
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Stats returns counters for every provider in failover order.
func (r *Registry) Stats() []Stats {
	ds := r.Descriptors()
	out := make([]Stats, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Stats())
	}
	return out
}
