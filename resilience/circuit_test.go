package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock shared by the tests in this package.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func failing(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func succeeding(context.Context) error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.config.MaxFailures)
	}
	if cb.config.ResetTimeout != 60*time.Second {
		t.Errorf("ResetTimeout = %v, want 60s", cb.config.ResetTimeout)
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	testErr := errors.New("test error")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), failing(testErr)); err != testErr {
			t.Errorf("Execute() error = %v, want %v", err, testErr)
		}
		if cb.State() != StateClosed {
			t.Errorf("After %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	if err := cb.Execute(context.Background(), failing(testErr)); err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if cb.State() != StateOpen {
		t.Fatalf("After 3 failures, state = %v, want open", cb.State())
	}

	clock.Advance(500 * time.Millisecond)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("op must not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() when open = %v, want ErrCircuitOpen", err)
	}
	if got := cb.Metrics().Failures; got != 3 {
		t.Errorf("Failures after rejection = %d, want 3", got)
	}
}

func TestCircuitBreaker_ResetTimeoutIsExclusive(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	_ = cb.Execute(context.Background(), failing(errors.New("boom")))
	clock.Advance(time.Second)

	if err := cb.Execute(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() at exactly ResetTimeout = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_StateDoesNotTransitionLazily(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	_ = cb.Execute(context.Background(), failing(errors.New("boom")))
	clock.Advance(time.Hour)

	if cb.State() != StateOpen {
		t.Errorf("State = %v, want open until the next Execute", cb.State())
	}
}

func TestCircuitBreaker_RecoverySuccess(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing(testErr))
	}

	clock.Advance(time.Second + time.Millisecond)

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		if cb.State() != StateHalfOpen {
			t.Errorf("State during trial = %v, want half-open", cb.State())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !called {
		t.Fatal("trial call was not attempted")
	}

	m := cb.Metrics()
	if m.State != StateClosed {
		t.Errorf("State = %v, want closed", m.State)
	}
	if m.Failures != 0 {
		t.Errorf("Failures = %d, want 0", m.Failures)
	}
}

func TestCircuitBreaker_RecoveryFailure(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing(testErr))
	}

	clock.Advance(2 * time.Second)

	if err := cb.Execute(context.Background(), failing(testErr)); err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}

	m := cb.Metrics()
	if m.State != StateOpen {
		t.Errorf("State = %v, want open", m.State)
	}
	if m.Failures != 4 {
		t.Errorf("Failures = %d, want 4", m.Failures)
	}
	if !m.LastFailure.Equal(clock.Now()) {
		t.Errorf("LastFailure = %v, want %v", m.LastFailure, clock.Now())
	}

	// The failed trial restarts the cooldown.
	clock.Advance(500 * time.Millisecond)
	if err := cb.Execute(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() after failed trial = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SingleTrialInFlight(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})

	_ = cb.Execute(context.Background(), failing(errors.New("boom")))
	clock.Advance(2 * time.Second)

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		if err := cb.Execute(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("concurrent trial = %v, want ErrCircuitOpen", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(context.Background(), failing(errors.New("test error")))
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("After reset, state = %v, want closed", cb.State())
	}
	if cb.Metrics().Failures != 0 {
		t.Errorf("After reset, failures = %d, want 0", cb.Metrics().Failures)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	var transitions []transition

	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, transition{from, to})
		},
	})

	_ = cb.Execute(context.Background(), failing(errors.New("test error")))
	clock.Advance(2 * time.Second)
	_ = cb.Execute(context.Background(), succeeding)

	want := []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})

	testErr := errors.New("test error")

	_ = cb.Execute(context.Background(), failing(testErr))
	_ = cb.Execute(context.Background(), failing(testErr))
	_ = cb.Execute(context.Background(), succeeding)
	_ = cb.Execute(context.Background(), failing(testErr))
	_ = cb.Execute(context.Background(), failing(testErr))

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
	if cb.Metrics().Failures != 2 {
		t.Errorf("Failures = %d, want 2", cb.Metrics().Failures)
	}
}

func TestCircuitBreaker_ConcurrentExecute(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1000})
	testErr := errors.New("test error")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(context.Background(), failing(testErr))
		}()
	}
	wg.Wait()

	if got := cb.Metrics().Failures; got != 50 {
		t.Errorf("Failures = %d, want 50", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
