package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordSleep captures requested delays without waiting.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", r.config.InitialDelay)
	}
	if r.config.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{MaxAttempts: 3, Sleep: recordSleep(&delays)})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Sleep:        recordSleep(&delays),
	})

	attempts := 0
	testErr := errors.New("test error")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return testErr
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(delays) != 2 {
		t.Errorf("delays = %v, want 2 entries", delays)
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	var delays []time.Duration
	var failures []int
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Sleep:        recordSleep(&delays),
		OnFailure: func(attempt int, err error) {
			failures = append(failures, attempt)
		},
	})

	attempts := 0
	testErr := errors.New("persistent error")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}

	wantDelays := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], wantDelays[i])
		}
	}

	wantFailures := []int{1, 2, 3, 4}
	if len(failures) != len(wantFailures) {
		t.Fatalf("OnFailure attempts = %v, want %v", failures, wantFailures)
	}
	for i := range wantFailures {
		if failures[i] != wantFailures[i] {
			t.Errorf("OnFailure[%d] = %d, want %d", i, failures[i], wantFailures[i])
		}
	}
}

func TestRetry_NegativeMaxAttemptsDisablesRetry(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: -1})

	attempts := 0
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("fail")
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestBackoff_Sequence(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		MaxAttempts:  3,
	})

	b := r.Backoff()
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var seen []time.Duration
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		Sleep:        recordSleep(&delays),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			seen = append(seen, delay)
		},
	})

	_ = r.Execute(context.Background(), failing(errors.New("fail")))

	if len(seen) != 2 {
		t.Fatalf("OnRetry calls = %d, want 2", len(seen))
	}
	if seen[0] != 10*time.Millisecond || seen[1] != 20*time.Millisecond {
		t.Errorf("OnRetry delays = %v, want [10ms 20ms]", seen)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := r.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("test error")
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
