package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordAttemptSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordAttempt(context.Background(), AttemptMeta{Provider: "p1", Attempt: 1}, 20*time.Millisecond, nil)

	rm := collect(t, reader)

	total := findMetric(rm, "delivery.attempt.total")
	if total == nil {
		t.Fatal("delivery.attempt.total metric not found")
	}
	if got := sumValue(t, total); got != 1 {
		t.Errorf("delivery.attempt.total = %d, want 1", got)
	}

	if errs := findMetric(rm, "delivery.attempt.errors"); errs != nil {
		if got := sumValue(t, errs); got != 0 {
			t.Errorf("delivery.attempt.errors = %d, want 0", got)
		}
	}

	if findMetric(rm, "delivery.attempt.duration_ms") == nil {
		t.Error("delivery.attempt.duration_ms metric not found")
	}
}

func TestMetrics_RecordAttemptFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := AttemptMeta{Provider: "p2", Attempt: 3}
	m.RecordAttempt(context.Background(), meta, time.Millisecond, errors.New("boom"))
	m.RecordAttempt(context.Background(), meta, time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)

	errs := findMetric(rm, "delivery.attempt.errors")
	if errs == nil {
		t.Fatal("delivery.attempt.errors metric not found")
	}
	if got := sumValue(t, errs); got != 2 {
		t.Errorf("delivery.attempt.errors = %d, want 2", got)
	}

	sum := errs.Data.(metricdata.Sum[int64])
	provider, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("delivery.provider"))
	if !ok || provider.AsString() != "p2" {
		t.Errorf("delivery.provider = %v, want p2", provider.AsString())
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OutcomeSent)
	m.RecordRequest(context.Background(), OutcomeDuplicate)
	m.RecordRequest(context.Background(), OutcomeSent)

	rm := collect(t, reader)
	requests := findMetric(rm, "delivery.requests.total")
	if requests == nil {
		t.Fatal("delivery.requests.total metric not found")
	}
	if got := sumValue(t, requests); got != 3 {
		t.Errorf("delivery.requests.total = %d, want 3", got)
	}
}

func TestNopMetrics_NoPanic(t *testing.T) {
	m := NopMetrics()
	m.RecordAttempt(context.Background(), AttemptMeta{Provider: "noop"}, time.Millisecond, nil)
	m.RecordRequest(context.Background(), OutcomeFailed)
}
