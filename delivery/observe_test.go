package delivery

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/provider"
)

func TestSubmit_InstrumentsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p2 := newMockProvider(ctrl, "p2")
	p1.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil, networkFailure("p1")).Times(4)
	p2.EXPECT().Deliver(gomock.Any(), gomock.Any()).DoAndReturn(receiptFrom("p2")).Times(1)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	metrics, err := observe.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var logs bytes.Buffer
	mw := observe.NewMiddleware(observe.NewTracer(tp.Tracer("test")), metrics, observe.NewLoggerWithWriter("info", &logs))

	o, _, _ := newTestOrchestrator(t, testConfig(), []provider.Provider{p1, p2}, WithMiddleware(mw))

	msg := message(1)
	msg.Body = "do not log me"
	_, err = o.Submit(context.Background(), msg)
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"delivery.attempt.p1",
		"delivery.attempt.p1",
		"delivery.attempt.p1",
		"delivery.attempt.p1",
		"delivery.attempt.p2",
	}, names)

	out := logs.String()
	assert.Equal(t, 4, strings.Count(out, `"message":"attempt failed"`))
	assert.Contains(t, out, `"message":"delivery sent"`)
	assert.NotContains(t, out, "do not log me")
}
