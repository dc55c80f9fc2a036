package delivery

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/dispatchops/resilience"
)

var (
	// ErrRateLimitExceeded is returned when admission is denied. No status
	// is recorded for the request.
	ErrRateLimitExceeded = fmt.Errorf("delivery: %w", resilience.ErrRateLimitExceeded)

	// ErrProvidersExhausted matches every ExhaustedError.
	ErrProvidersExhausted = errors.New("delivery: all providers failed")

	// ErrNoProviders is returned by New when the registry is empty.
	ErrNoProviders = errors.New("delivery: no providers registered")

	// ErrUnknownProvider is returned for a provider name not in the registry.
	ErrUnknownProvider = errors.New("delivery: unknown provider")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("delivery: invalid config")
)

// ExhaustedError reports that every provider was skipped or failed.
type ExhaustedError struct {
	// Last is the error from the last provider attempted, or nil when every
	// provider was skipped.
	Last error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "all providers failed"
	}
	return e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is makes every ExhaustedError match ErrProvidersExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrProvidersExhausted
}
