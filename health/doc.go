// Package health provides health checking for the delivery service.
//
// A Checker reports the state of one component as Healthy, Degraded or
// Unhealthy. An Aggregator runs a set of checkers concurrently, collapses
// overlapping probes into one run, and folds the results into an overall
// status that the HTTP handlers expose.
//
// # Basic Usage
//
//	agg := health.NewAggregator()
//	agg.Register("providers", delivery.BreakerChecker(orch))
//	agg.Register("status_store", delivery.StoreChecker(orch))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
package health
