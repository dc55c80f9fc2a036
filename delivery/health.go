package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/dispatchops/health"
	"github.com/jonwraymond/dispatchops/resilience"
	"github.com/jonwraymond/dispatchops/status"
)

// BreakerChecker reports provider availability from breaker state.
// Healthy when every breaker is closed, degraded when some are tripped and
// unhealthy when none is closed.
func BreakerChecker(o *Orchestrator) health.Checker {
	return health.NewCheckerFunc("providers", func(ctx context.Context) health.Result {
		start := time.Now()
		stats := o.Stats()

		details := make(map[string]any, len(stats.Providers))
		tripped := 0
		for _, p := range stats.Providers {
			details[p.Name] = p.Breaker.State.String()
			if p.Breaker.State != resilience.StateClosed {
				tripped++
			}
		}

		var result health.Result
		switch {
		case tripped == 0:
			result = health.Healthy("all providers available")
		case tripped < len(stats.Providers):
			result = health.Degraded(fmt.Sprintf("%d of %d providers tripped", tripped, len(stats.Providers)))
		default:
			result = health.Unhealthy("all providers tripped", resilience.ErrCircuitOpen)
		}
		return result.WithDetails(details).WithDuration(time.Since(start))
	})
}

// StoreChecker reports status store occupancy. It is always healthy; the
// details carry per-state counts when the store can provide them.
func StoreChecker(o *Orchestrator) health.Checker {
	return health.NewCheckerFunc("status_store", func(ctx context.Context) health.Result {
		details := map[string]any{"tracked": o.store.Len()}

		if counter, ok := o.store.(interface{ CountState(status.State) int }); ok {
			for _, s := range []status.State{status.StatePending, status.StateSent, status.StateFailed} {
				details[string(s)] = counter.CountState(s)
			}
		}
		return health.Healthy("status store available").WithDetails(details)
	})
}
