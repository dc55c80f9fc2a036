package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/provider"
)

// Outcome labels a drained message.
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeFailed      Outcome = "failed"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Result is one entry of the drain log.
type Result struct {
	Email       string    `json:"email"`
	Status      Outcome   `json:"status"`
	Fingerprint string    `json:"fingerprint"`
	MessageID   string    `json:"message_id,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

func newResult(msg provider.Message, res delivery.Result, err error, now time.Time) Result {
	r := Result{
		Email:       msg.To,
		Fingerprint: res.Fingerprint,
		ProcessedAt: now,
	}

	switch {
	case errors.Is(err, delivery.ErrRateLimitExceeded):
		r.Status = OutcomeRateLimited
		r.Error = err.Error()
	case err != nil:
		r.Status = OutcomeFailed
		r.Error = err.Error()
	case res.Duplicate:
		r.Status = OutcomeAlreadySent
	default:
		r.Status = OutcomeSent
	}

	if res.Receipt != nil {
		r.MessageID = res.Receipt.MessageID
		r.Provider = res.Receipt.ProviderID
	}
	return r
}

// resultLog keeps the most recent results up to a limit.
type resultLog struct {
	mu    sync.RWMutex
	limit int
	items []Result
}

func (l *resultLog) append(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, r)
	if over := len(l.items) - l.limit; l.limit > 0 && over > 0 {
		l.items = append(l.items[:0:0], l.items[over:]...)
	}
}

func (l *resultLog) snapshot() []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Result, len(l.items))
	copy(out, l.items)
	return out
}
