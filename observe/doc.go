// Package observe provides observability primitives for delivery attempts.
//
// It bundles an OpenTelemetry tracer and meter, a zerolog-backed structured
// logger with field redaction, and a Middleware that wraps every provider
// attempt in a span, a metrics sample and a log line.
package observe
