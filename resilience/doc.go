// Package resilience provides the failure-handling building blocks used by
// the delivery orchestrator.
//
// # Patterns
//
//   - WindowLimiter: sliding-window log admission control. CanRequest is a
//     pure check and RecordRequest records an admission, so callers decide
//     when an admission counts.
//
//   - CircuitBreaker: consecutive-failure breaker with a lazily evaluated
//     half-open trial. State reports the stored state without triggering
//     that transition.
//
//   - Retry: bounded retries with exponential backoff capped at MaxDelay.
//     MaxAttempts counts retries, so an operation runs at most
//     MaxAttempts+1 times.
//
//   - RateLimiter: token bucket pacing backed by golang.org/x/time/rate.
//
//   - Bulkhead: bounds concurrent operations.
//
//   - Timeout: bounds a single operation.
//
// # Usage
//
// Executor composes the per-call patterns. Retry is outermost so that every
// retry is gated by the breaker:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: time.Second,
//	        MaxDelay:     10 * time.Second,
//	    })),
//	    resilience.WithCircuitBreaker(cb),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callProvider(ctx)
//	})
package resilience
