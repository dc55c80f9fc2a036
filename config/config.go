package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/provider"
	"github.com/jonwraymond/dispatchops/resilience"
)

// File is the on-disk configuration.
type File struct {
	Service   ServiceConfig    `json:"service"`
	Server    ServerConfig     `json:"server"`
	Delivery  DeliveryConfig   `json:"delivery"`
	Providers []ProviderConfig `json:"providers"`
	Queue     QueueConfig      `json:"queue"`
	Observe   ObserveConfig    `json:"observe"`
}

// ServiceConfig names the running service.
type ServiceConfig struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `json:"addr"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

// DeliveryConfig mirrors delivery.Config with durations as strings.
// Omitted fields take the orchestrator defaults.
type DeliveryConfig struct {
	MaxAttempts             int    `json:"max_attempts,omitempty"`
	InitialDelay            string `json:"initial_delay,omitempty"`
	MaxDelay                string `json:"max_delay,omitempty"`
	MaxRequests             int    `json:"max_requests,omitempty"`
	Window                  string `json:"window,omitempty"`
	CircuitFailureThreshold int    `json:"circuit_failure_threshold,omitempty"`
	CircuitResetTimeout     string `json:"circuit_reset_timeout,omitempty"`
	AttemptTimeout          string `json:"attempt_timeout,omitempty"`
	Retention               string `json:"retention,omitempty"`
}

// ProviderConfig describes one simulated provider. Providers are tried in
// the order they are listed.
type ProviderConfig struct {
	Name string `json:"name"`
	// Reliability is the success probability in (0,1]. Omitted means the
	// simulated provider default.
	Reliability   *float64 `json:"reliability,omitempty"`
	Latency       string   `json:"latency,omitempty"`
	RatePerSecond float64  `json:"rate_per_second,omitempty"`
	Burst         int      `json:"burst,omitempty"`
}

// QueueConfig controls the background drainer.
type QueueConfig struct {
	// Schedule is a cron spec or descriptor such as "@every 10s".
	Schedule      string `json:"schedule"`
	MaxConcurrent int    `json:"max_concurrent,omitempty"`
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `json:"enabled"`
		Exporter  string  `json:"exporter,omitempty"`
		SamplePct float64 `json:"sample_pct,omitempty"`
	} `json:"tracing"`
	Metrics struct {
		Enabled  bool   `json:"enabled"`
		Exporter string `json:"exporter,omitempty"`
	} `json:"metrics"`
	Logging struct {
		Enabled bool   `json:"enabled"`
		Level   string `json:"level,omitempty"`
	} `json:"logging"`
}

// Default returns the configuration used when no file is given: two
// simulated providers, a 10 second drain and JSON logging at info.
func Default() File {
	f := File{
		Service: ServiceConfig{Name: "dispatchd"},
		Server:  ServerConfig{Addr: ":3006", ShutdownTimeout: "10s"},
		Providers: []ProviderConfig{
			{Name: "Provider1", Reliability: float(0.7), Latency: "3s"},
			{Name: "Provider2", Reliability: float(0.8), Latency: "2s"},
		},
		Queue: QueueConfig{Schedule: "@every 10s", MaxConcurrent: 10},
	}
	f.Observe.Logging.Enabled = true
	f.Observe.Logging.Level = "info"
	return f
}

// Validate checks the configuration. All problems are reported together.
func (f *File) Validate() error {
	var errs []error

	if strings.TrimSpace(f.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if _, err := parseDuration("server.shutdown_timeout", f.Server.ShutdownTimeout); err != nil {
		errs = append(errs, err)
	}

	if _, err := f.delivery(); err != nil {
		errs = append(errs, err)
	}

	if len(f.Providers) == 0 {
		errs = append(errs, errors.New("at least one provider is required"))
	}
	seen := make(map[string]struct{}, len(f.Providers))
	for i, p := range f.Providers {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("providers[%d].name is required", i))
			continue
		}
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = struct{}{}
		if r := p.Reliability; r != nil && (*r <= 0 || *r > 1) {
			errs = append(errs, fmt.Errorf("providers[%d].reliability must be within (0,1]", i))
		}
		if _, err := parseDuration(fmt.Sprintf("providers[%d].latency", i), p.Latency); err != nil {
			errs = append(errs, err)
		}
		if p.RatePerSecond < 0 || p.Burst < 0 {
			errs = append(errs, fmt.Errorf("providers[%d]: rate_per_second and burst must not be negative", i))
		}
	}

	if f.Queue.MaxConcurrent < 0 {
		errs = append(errs, errors.New("queue.max_concurrent must not be negative"))
	}

	obs := f.ObserveConfig()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// DeliveryConfig converts the delivery section. Call Validate first; invalid
// durations are treated as omitted here.
func (f *File) DeliveryConfig() delivery.Config {
	cfg, _ := f.delivery()
	return cfg
}

func (f *File) delivery() (delivery.Config, error) {
	d := f.Delivery
	cfg := delivery.Config{
		MaxAttempts:             d.MaxAttempts,
		MaxRequests:             d.MaxRequests,
		CircuitFailureThreshold: d.CircuitFailureThreshold,
	}

	var errs []error
	for _, field := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"delivery.initial_delay", d.InitialDelay, &cfg.InitialDelay},
		{"delivery.max_delay", d.MaxDelay, &cfg.MaxDelay},
		{"delivery.window", d.Window, &cfg.Window},
		{"delivery.circuit_reset_timeout", d.CircuitResetTimeout, &cfg.CircuitResetTimeout},
		{"delivery.attempt_timeout", d.AttemptTimeout, &cfg.AttemptTimeout},
		{"delivery.retention", d.Retention, &cfg.Retention},
	} {
		v, err := parseDuration(field.name, field.value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*field.dst = v
	}
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Registry builds the provider registry in configured order.
func (f *File) Registry() (*provider.Registry, error) {
	reg, err := provider.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, p := range f.Providers {
		latency, err := parseDuration("latency", p.Latency)
		if err != nil {
			return nil, err
		}
		sc := provider.SimulatedConfig{Name: p.Name, Latency: latency}
		if p.Reliability != nil {
			sc.Reliability = *p.Reliability
		}
		sim := provider.NewSimulated(sc)

		var opts []provider.DescriptorOption
		if p.RatePerSecond > 0 {
			opts = append(opts, provider.WithRate(p.RatePerSecond, p.Burst))
		}
		if err := reg.Register(sim, opts...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ObserveConfig converts the observe section.
func (f *File) ObserveConfig() observe.Config {
	o := f.Observe
	return observe.Config{
		ServiceName: f.Service.Name,
		Version:     f.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// ShutdownTimeout returns the HTTP drain timeout.
// Default: 10s
func (f *File) ShutdownTimeout() time.Duration {
	d, err := parseDuration("server.shutdown_timeout", f.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// BulkheadConfig returns the drainer's concurrency bound.
func (f *File) BulkheadConfig() resilience.BulkheadConfig {
	return resilience.BulkheadConfig{MaxConcurrent: f.Queue.MaxConcurrent}
}

// parseDuration parses a Go duration string; empty means zero.
func parseDuration(field, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func float(v float64) *float64 { return &v }
