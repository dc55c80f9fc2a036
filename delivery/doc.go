// Package delivery orchestrates message sends across a prioritized set of
// providers.
//
// An Orchestrator deduplicates requests by content fingerprint, admits them
// through a sliding-window rate limit, and fails over across providers in
// registry order. Each provider call is retried with exponential backoff and
// gated by that provider's circuit breaker. Request lifecycles are tracked in
// a status.Store.
//
// # Basic Usage
//
//	reg, _ := provider.NewRegistry(primary, secondary)
//	orch, _ := delivery.New(reg, delivery.DefaultConfig())
//
//	res, err := orch.Submit(ctx, provider.Message{To: "a@example.com", Subject: "hi", Body: "hello"})
//	switch {
//	case errors.Is(err, delivery.ErrRateLimitExceeded):
//	    // try later
//	case errors.Is(err, delivery.ErrProvidersExhausted):
//	    // every provider failed; res.Record holds the attempt log
//	case res.Duplicate:
//	    // already seen; nothing was sent
//	}
package delivery
