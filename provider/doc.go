// Package provider defines the delivery capability the orchestrator fails
// over across, and the ordered registry that holds it.
//
// A Provider attempts a single delivery and either returns a Receipt or
// fails. Providers know nothing about idempotency, retries, or circuit
// breaking; the delivery package owns all of that.
//
// Simulated is a stand-in provider with fixed latency and a configurable
// reliability. Its randomness is injectable so tests can script outcomes.
package provider
