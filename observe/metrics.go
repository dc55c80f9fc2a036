package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels used on delivery metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeDuplicate   = "duplicate"
	OutcomeRateLimited = "rate_limited"
)

// Metrics records delivery metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAttempt records one provider call with its duration and error status.
	RecordAttempt(ctx context.Context, meta AttemptMeta, duration time.Duration, err error)

	// RecordRequest records how a submitted request ended.
	RecordRequest(ctx context.Context, outcome string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	attemptCount metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	requestCount metric.Int64Counter
}

// NewMetrics creates delivery instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	attemptCount, err := meter.Int64Counter(
		"delivery.attempt.total",
		metric.WithDescription("Total number of provider delivery attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"delivery.attempt.errors",
		metric.WithDescription("Total number of failed provider delivery attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"delivery.attempt.duration_ms",
		metric.WithDescription("Provider delivery attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"delivery.requests.total",
		metric.WithDescription("Submitted delivery requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		attemptCount: attemptCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		requestCount: requestCount,
	}, nil
}

// RecordAttempt records metrics for a provider attempt.
func (m *metricsImpl) RecordAttempt(ctx context.Context, meta AttemptMeta, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	opt := metric.WithAttributes(
		attribute.String("delivery.provider", meta.Provider),
		attribute.String("delivery.outcome", outcome),
	)

	m.attemptCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordRequest counts a finished request.
func (m *metricsImpl) RecordRequest(ctx context.Context, outcome string) {
	m.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("delivery.outcome", outcome)))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordAttempt(ctx context.Context, meta AttemptMeta, duration time.Duration, err error) {
}

func (noopMetrics) RecordRequest(ctx context.Context, outcome string) {}
