package resilience

import (
	"sync"
	"time"
)

// WindowLimiterConfig configures the sliding-window limiter.
type WindowLimiterConfig struct {
	// MaxRequests is the number of admissions allowed per window.
	// Default: 100
	MaxRequests int

	// Window is the trailing duration admissions are counted over.
	// Default: 60 seconds
	Window time.Duration

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// WindowLimiter is a sliding-window log limiter: it keeps the timestamp of
// every recorded admission and counts those still inside the window.
//
// CanRequest and RecordRequest are separate so callers can record only on
// the accepted path. Allow combines both under one lock.
type WindowLimiter struct {
	config WindowLimiterConfig

	mu     sync.Mutex
	stamps []time.Time
}

// NewWindowLimiter creates a new sliding-window limiter.
func NewWindowLimiter(config WindowLimiterConfig) *WindowLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &WindowLimiter{config: config}
}

// CanRequest reports whether another admission fits in the current window.
// It prunes expired timestamps but records nothing.
func (l *WindowLimiter) CanRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.config.Now())
	return len(l.stamps) < l.config.MaxRequests
}

// RecordRequest records an admission at the current time.
func (l *WindowLimiter) RecordRequest() {
	l.mu.Lock()
	l.stamps = append(l.stamps, l.config.Now())
	l.mu.Unlock()
}

// Allow checks and records in a single step.
func (l *WindowLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Now()
	l.pruneLocked(now)
	if len(l.stamps) >= l.config.MaxRequests {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Count returns the number of admissions inside the current window.
func (l *WindowLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.config.Now())
	return len(l.stamps)
}

// Config returns the limiter configuration.
func (l *WindowLimiter) Config() WindowLimiterConfig {
	return l.config
}

// pruneLocked drops timestamps older than now-Window. A timestamp exactly
// Window old is still counted.
func (l *WindowLimiter) pruneLocked(now time.Time) {
	cutoff := 0
	for cutoff < len(l.stamps) && now.Sub(l.stamps[cutoff]) > l.config.Window {
		cutoff++
	}
	if cutoff > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[cutoff:]...)
	}
}
