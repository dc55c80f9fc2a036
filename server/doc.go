// Package server exposes the delivery service over HTTP.
//
// Routes:
//
//	POST /send                  queue a message (202) or report it as already sent (200)
//	GET  /results               drain log
//	GET  /status/{fingerprint}  tracked record for one message
//	GET  /stats                 orchestrator counters and breaker states
//	GET  /healthz /readyz /health
//	GET  /metrics               when a metrics handler is configured
package server
