package observe

// AttemptMeta describes one provider call for telemetry purposes.
type AttemptMeta struct {
	Provider    string // Provider name (required)
	Attempt     int    // 1-based attempt number within the provider
	Fingerprint string // Request fingerprint (optional)
}

// SpanName returns the deterministic span name for this attempt.
// Format: delivery.attempt.<provider>
func (m AttemptMeta) SpanName() string {
	return "delivery.attempt." + m.Provider
}

// Validate checks the metadata carries a provider name.
func (m AttemptMeta) Validate() error {
	if m.Provider == "" {
		return ErrMissingProvider
	}
	return nil
}

// fields returns the log fields describing the attempt.
func (m AttemptMeta) fields() []Field {
	fields := []Field{
		{Key: "provider", Value: m.Provider},
		{Key: "attempt", Value: m.Attempt},
	}
	if m.Fingerprint != "" {
		fields = append(fields, Field{Key: "fingerprint", Value: m.Fingerprint})
	}
	return fields
}
