package observe_test

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/dispatchops/observe"
)

func ExampleAttemptMeta_SpanName() {
	meta := observe.AttemptMeta{Provider: "Provider1", Attempt: 1}
	fmt.Println(meta.SpanName())
	// Output: delivery.attempt.Provider1
}

func ExampleConfig_Validate() {
	cfg := observe.Config{
		ServiceName: "dispatchd",
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}
	fmt.Println(cfg.Validate())
	// Output: <nil>
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(observe.NopTracer(), observe.NopMetrics(), observe.NewLoggerWithWriter("error", os.Stdout))

	attempt := mw.Wrap(func(ctx context.Context, meta observe.AttemptMeta) error {
		return nil
	})
	fmt.Println(attempt(context.Background(), observe.AttemptMeta{Provider: "p1", Attempt: 1}))
	// Output: <nil>
}
