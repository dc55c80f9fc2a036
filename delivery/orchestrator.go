package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/provider"
	"github.com/jonwraymond/dispatchops/resilience"
	"github.com/jonwraymond/dispatchops/status"
)

// Result describes the outcome of Submit.
type Result struct {
	// Duplicate is true when the fingerprint was already tracked. No
	// provider was called.
	Duplicate bool `json:"duplicate"`

	Fingerprint string            `json:"fingerprint"`
	Record      status.Record     `json:"record"`
	Receipt     *provider.Receipt `json:"receipt,omitempty"`
}

// Stats is a snapshot of orchestrator counters.
type Stats struct {
	TotalSent    int64           `json:"total_sent"`
	TotalTracked int             `json:"total_tracked"`
	Providers    []ProviderStats `json:"providers"`
}

// ProviderStats holds per-provider counters and breaker state.
type ProviderStats struct {
	provider.Stats
	Breaker resilience.CircuitBreakerMetrics `json:"circuit_breaker"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore replaces the default in-memory status store.
func WithStore(store status.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithMiddleware instruments every provider attempt.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *Orchestrator) {
		o.mw = mw
	}
}

// WithLogger sets the logger used for request-level events. Default: the
// middleware's logger.
func WithLogger(logger observe.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source shared by the limiter, breakers and
// store.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithSleep overrides how retry backoff waits.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// lane is one provider plus the resilience state that outlives requests.
type lane struct {
	desc    *provider.Descriptor
	breaker *resilience.CircuitBreaker
	pacer   *resilience.RateLimiter
}

// Orchestrator delivers messages with deduplication, admission control,
// provider failover, retries and circuit breaking.
//
// Admission (the duplicate lookup, the rate-limit check, creating the pending
// record and recording the admission) is serialized, so concurrent submits of
// the same message reach providers at most once. Provider calls and backoff
// sleeps run outside any lock.
type Orchestrator struct {
	config  Config
	store   status.Store
	limiter *resilience.WindowLimiter
	lanes   []*lane
	byName  map[string]*lane
	mw      *observe.Middleware
	logger  observe.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	admitMu   sync.Mutex
	totalSent atomic.Int64
}

// New creates an orchestrator over the providers in reg, in registry order.
func New(reg *provider.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, ErrNoProviders
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	o := &Orchestrator{
		config: cfg,
		byName: make(map[string]*lane, reg.Len()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.mw == nil {
		o.mw = observe.NopMiddleware()
	}
	if o.logger == nil {
		o.logger = o.mw.Logger()
	}
	if o.store == nil {
		o.store = status.NewMemoryStore(cfg.policy(), status.WithClock(o.now))
	}

	o.limiter = resilience.NewWindowLimiter(resilience.WindowLimiterConfig{
		MaxRequests: cfg.MaxRequests,
		Window:      cfg.Window,
		Now:         o.now,
	})

	for _, d := range reg.Descriptors() {
		name := d.Name()
		l := &lane{desc: d}
		l.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.CircuitFailureThreshold,
			ResetTimeout: cfg.CircuitResetTimeout,
			Now:          o.now,
			OnStateChange: func(from, to resilience.State) {
				o.logger.Warn(context.Background(), "circuit state changed",
					observe.F("provider", name),
					observe.F("from", from.String()),
					observe.F("to", to.String()),
				)
			},
		})
		if d.RatePerSecond > 0 {
			l.pacer = resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Rate:  d.RatePerSecond,
				Burst: d.Burst,
			})
		}
		o.lanes = append(o.lanes, l)
		o.byName[name] = l
	}

	return o, nil
}

// Submit delivers msg unless an identical message is already tracked.
//
// A duplicate returns the stored record with Duplicate set and a nil error.
// A denied admission returns ErrRateLimitExceeded without recording status.
// Otherwise the record ends sent, or failed with an error matching
// ErrProvidersExhausted (or the context error if ctx ended first).
func (o *Orchestrator) Submit(ctx context.Context, msg provider.Message) (Result, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = o.now()
	}
	fp := status.Fingerprint(msg.To, msg.Subject, msg.Body)
	logger := o.logger.With(observe.F("fingerprint", fp))
	metrics := o.mw.Metrics()

	rec, admitted, err := o.admit(ctx, fp)
	if err != nil {
		if errors.Is(err, ErrRateLimitExceeded) {
			metrics.RecordRequest(ctx, observe.OutcomeRateLimited)
			logger.Warn(ctx, "rate limited")
		}
		return Result{Fingerprint: fp}, err
	}
	if !admitted {
		metrics.RecordRequest(ctx, observe.OutcomeDuplicate)
		logger.Info(ctx, "duplicate", observe.F("status", string(rec.State)))
		return Result{Duplicate: true, Fingerprint: fp, Record: rec, Receipt: rec.Receipt}, nil
	}

	logger.Info(ctx, "delivery started", observe.F("to", msg.To))
	receipt, sendErr := o.failover(ctx, fp, msg, logger)

	// The outcome is recorded even when ctx has been canceled.
	final, err := o.store.Update(context.WithoutCancel(ctx), fp, func(r *status.Record) {
		r.EndedAt = o.now()
		if sendErr != nil {
			r.State = status.StateFailed
			r.FinalError = sendErr.Error()
			return
		}
		r.State = status.StateSent
		r.Receipt = receipt
	})
	if err != nil {
		return Result{Fingerprint: fp, Record: final}, fmt.Errorf("delivery: record outcome: %w", err)
	}

	if sendErr != nil {
		metrics.RecordRequest(ctx, observe.OutcomeFailed)
		logger.Error(ctx, "delivery failed",
			observe.F("attempts", final.Attempts),
			observe.F("error", sendErr),
		)
		return Result{Fingerprint: fp, Record: final}, sendErr
	}

	o.totalSent.Add(1)
	metrics.RecordRequest(ctx, observe.OutcomeSent)
	logger.Info(ctx, "delivery sent",
		observe.F("provider", receipt.ProviderID),
		observe.F("attempts", final.Attempts),
	)
	return Result{Fingerprint: fp, Record: final, Receipt: receipt}, nil
}

// admit runs the serialized admission section. It returns the existing
// record and admitted=false for a duplicate.
func (o *Orchestrator) admit(ctx context.Context, fp string) (status.Record, bool, error) {
	o.admitMu.Lock()
	defer o.admitMu.Unlock()

	if rec, ok := o.store.Get(ctx, fp); ok {
		return rec, false, nil
	}

	if !o.limiter.CanRequest() {
		return status.Record{}, false, ErrRateLimitExceeded
	}

	rec, created, err := o.store.Create(ctx, status.Record{
		Fingerprint: fp,
		State:       status.StatePending,
		StartedAt:   o.now(),
	})
	if err != nil {
		return status.Record{}, false, fmt.Errorf("delivery: create record: %w", err)
	}
	if !created {
		// Another writer sharing the store won the insert.
		return rec, false, nil
	}

	o.limiter.RecordRequest()
	return rec, true, nil
}

// failover tries each provider in order until one succeeds.
func (o *Orchestrator) failover(ctx context.Context, fp string, msg provider.Message, logger observe.Logger) (*provider.Receipt, error) {
	var lastErr error

	for _, l := range o.lanes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Raw state: an open breaker is skipped even once its reset timeout
		// has passed, since only Execute moves it to half-open.
		if l.breaker.State() == resilience.StateOpen {
			logger.Warn(ctx, "provider skipped",
				observe.F("provider", l.desc.Name()),
				observe.F("reason", "circuit open"),
			)
			continue
		}

		receipt, err := o.tryProvider(ctx, l, fp, msg, logger)
		if err == nil {
			return receipt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
	}

	return nil, &ExhaustedError{Last: lastErr}
}

// tryProvider runs the retry loop for one provider.
func (o *Orchestrator) tryProvider(ctx context.Context, l *lane, fp string, msg provider.Message, logger observe.Logger) (*provider.Receipt, error) {
	name := l.desc.Name()
	attempt := 1

	var (
		mu      sync.Mutex
		receipt *provider.Receipt
	)

	retryCfg := o.config.retryConfig()
	retryCfg.Sleep = o.sleep
	retryCfg.OnFailure = func(n int, err error) {
		attempt = n + 1
		o.recordFailure(ctx, logger, fp, name, n, err)
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrRateLimitExceeded) {
			logger.Warn(ctx, "attempt rejected",
				observe.F("provider", name),
				observe.F("attempt", n),
				observe.F("error", err),
			)
		}
	}

	exec := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(retryCfg)),
		resilience.WithRateLimiter(l.pacer),
		resilience.WithCircuitBreaker(l.breaker),
		resilience.WithTimeout(o.config.AttemptTimeout),
	)

	call := o.mw.Wrap(func(ctx context.Context, _ observe.AttemptMeta) error {
		r, err := l.desc.Deliver(ctx, msg)
		if err != nil {
			return err
		}
		mu.Lock()
		receipt = r
		mu.Unlock()
		return nil
	})

	err := exec.Execute(ctx, func(ctx context.Context) error {
		return call(ctx, observe.AttemptMeta{Provider: name, Attempt: attempt, Fingerprint: fp})
	})
	if err != nil {
		return nil, err
	}

	if _, err := o.store.Update(context.WithoutCancel(ctx), fp, func(r *status.Record) {
		r.Attempts++
	}); err != nil {
		logger.Warn(ctx, "status update failed",
			observe.F("provider", name),
			observe.F("attempt", attempt),
			observe.F("error", err),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	return receipt, nil
}

// recordFailure appends a failed attempt to the record. A store error is
// logged and the retry loop continues.
func (o *Orchestrator) recordFailure(ctx context.Context, logger observe.Logger, fp, providerName string, attempt int, err error) {
	_, updateErr := o.store.Update(context.WithoutCancel(ctx), fp, func(r *status.Record) {
		r.Attempts++
		r.Errors = append(r.Errors, status.AttemptError{
			Provider:  providerName,
			Attempt:   attempt,
			Error:     err.Error(),
			Timestamp: o.now(),
		})
	})
	if updateErr != nil {
		logger.Warn(ctx, "status update failed",
			observe.F("provider", providerName),
			observe.F("attempt", attempt),
			observe.F("error", updateErr),
		)
	}
}

// Status returns a copy of the record for fingerprint.
func (o *Orchestrator) Status(fingerprint string) (status.Record, bool) {
	return o.store.Get(context.Background(), fingerprint)
}

// Stats returns a snapshot of the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	stats := Stats{
		TotalSent:    o.totalSent.Load(),
		TotalTracked: o.store.Len(),
		Providers:    make([]ProviderStats, 0, len(o.lanes)),
	}
	for _, l := range o.lanes {
		stats.Providers = append(stats.Providers, ProviderStats{
			Stats:   l.desc.Stats(),
			Breaker: l.breaker.Metrics(),
		})
	}
	return stats
}

// ResetBreaker closes the named provider's circuit breaker so the provider
// is tried again.
func (o *Orchestrator) ResetBreaker(name string) error {
	l, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	l.breaker.Reset()
	o.logger.Info(context.Background(), "circuit reset", observe.F("provider", name))
	return nil
}

// Sweep evicts expired records when the store supports it.
func (o *Orchestrator) Sweep(ctx context.Context) int {
	sweeper, ok := o.store.(interface {
		Sweep(context.Context) int
	})
	if !ok {
		return 0
	}
	n := sweeper.Sweep(ctx)
	if n > 0 {
		o.logger.Debug(ctx, "records swept", observe.F("count", n))
	}
	return n
}

// Known reports whether fingerprint is currently tracked.
func (o *Orchestrator) Known(fingerprint string) bool {
	_, ok := o.Status(fingerprint)
	return ok
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}
