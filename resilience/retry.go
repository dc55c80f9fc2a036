package resilience

import (
	"context"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the initial call, so an
	// operation is invoked at most MaxAttempts+1 times. A negative value
	// disables retries.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 10s
	MaxDelay time.Duration

	// Multiplier is applied to the delay after every retry.
	// Default: 2.0
	Multiplier float64

	// OnFailure is called after every failed call with the 1-based count of
	// failures so far.
	OnFailure func(attempt int, err error)

	// OnRetry is called before sleeping ahead of the next call.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep waits for d or until ctx is done.
	// Default: a timer-based wait honoring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Retry implements retry with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts < 0 {
		config.MaxAttempts = 0
	} else if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 10 * time.Second
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.Multiplier <= 1 {
		config.Multiplier = 2.0
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds or the retry budget is exhausted, in
// which case the last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	backoff := r.Backoff()
	attempt := 0

	for attempt <= r.config.MaxAttempts {
		err := op(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if r.config.OnFailure != nil {
			r.config.OnFailure(attempt, err)
		}
		if attempt > r.config.MaxAttempts {
			return err
		}

		delay := backoff.Next()
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if serr := r.config.Sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	return nil
}

// Backoff returns a fresh delay sequence for this policy.
func (r *Retry) Backoff() *Backoff {
	return &Backoff{
		next:       r.config.InitialDelay,
		max:        r.config.MaxDelay,
		multiplier: r.config.Multiplier,
	}
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Backoff yields successive exponential delays capped at a maximum.
// It is not safe for concurrent use.
type Backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
}

// Next returns the current delay and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.next
	grown := time.Duration(float64(b.next) * b.multiplier)
	if grown > b.max || grown < b.next {
		grown = b.max
	}
	b.next = grown
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
