package status

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	policy  Policy
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for retention.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-memory store with the given retention policy.
func NewMemoryStore(policy Policy, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the record. Expired records are evicted lazily.
func (s *MemoryStore) Get(_ context.Context, fingerprint string) (Record, bool) {
	s.mu.RLock()
	rec, ok := s.records[fingerprint]
	if !ok {
		s.mu.RUnlock()
		return Record{}, false
	}
	expired := s.policy.Expired(*rec, s.now())
	out := rec.Clone()
	s.mu.RUnlock()

	if expired {
		s.mu.Lock()
		if cur, ok := s.records[fingerprint]; ok && s.policy.Expired(*cur, s.now()) {
			delete(s.records, fingerprint)
		}
		s.mu.Unlock()
		return Record{}, false
	}
	return out, true
}

// Create inserts rec if its fingerprint is unknown or only held by an expired
// record.
func (s *MemoryStore) Create(_ context.Context, rec Record) (Record, bool, error) {
	if err := ValidateFingerprint(rec.Fingerprint); err != nil {
		return Record{}, false, err
	}
	if rec.State == "" {
		rec.State = StatePending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[rec.Fingerprint]; ok && !s.policy.Expired(*cur, s.now()) {
		return cur.Clone(), false, nil
	}

	stored := rec.Clone()
	s.records[rec.Fingerprint] = &stored
	return stored.Clone(), true, nil
}

// Update applies fn to a pending record. A record that is already terminal
// is left unchanged and ErrTerminal is returned.
func (s *MemoryStore) Update(_ context.Context, fingerprint string, fn func(*Record)) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[fingerprint]
	if !ok {
		return Record{}, ErrNotFound
	}
	if cur.State.Terminal() {
		return cur.Clone(), ErrTerminal
	}

	next := cur.Clone()
	fn(&next)
	next.Fingerprint = cur.Fingerprint

	switch next.State {
	case StatePending, StateSent, StateFailed:
	default:
		return cur.Clone(), fmt.Errorf("%w: %q", ErrInvalidState, next.State)
	}

	*cur = next
	return next.Clone(), nil
}

// Sweep evicts every expired record and returns how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for fp, rec := range s.records {
		if s.policy.Expired(*rec, now) {
			delete(s.records, fp)
			removed++
		}
	}
	return removed
}

// Len returns the number of records, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountState returns how many records are in state.
func (s *MemoryStore) CountState(state State) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if rec.State == state {
			n++
		}
	}
	return n
}

// Policy returns the retention policy.
func (s *MemoryStore) Policy() Policy {
	return s.policy
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
