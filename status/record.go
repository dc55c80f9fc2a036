package status

import (
	"slices"
	"time"

	"github.com/jonwraymond/dispatchops/provider"
)

// State is the lifecycle state of a delivery request.
type State string

const (
	// StatePending means providers are still being tried.
	StatePending State = "pending"
	// StateSent means a provider accepted the message.
	StateSent State = "sent"
	// StateFailed means every provider was skipped or exhausted.
	StateFailed State = "failed"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSent || s == StateFailed
}

// AttemptError records one failed provider call.
type AttemptError struct {
	Provider  string    `json:"provider"`
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the tracked status of one fingerprint.
type Record struct {
	Fingerprint string            `json:"fingerprint"`
	State       State             `json:"status"`
	Attempts    int               `json:"attempts"`
	Errors      []AttemptError    `json:"errors,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     time.Time         `json:"ended_at,omitzero"`
	Receipt     *provider.Receipt `json:"result,omitempty"`
	FinalError  string            `json:"error,omitempty"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Errors = slices.Clone(r.Errors)
	if r.Receipt != nil {
		receipt := *r.Receipt
		r.Receipt = &receipt
	}
	return r
}
