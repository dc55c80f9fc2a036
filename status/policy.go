package status

import "time"

// Policy configures how long finished records are kept.
type Policy struct {
	// Retention is how long a terminal record is kept after it ended.
	// If zero, records are kept forever.
	Retention time.Duration
}

// DefaultPolicy returns the default retention policy.
// Retention: 24 hours
func DefaultPolicy() Policy {
	return Policy{Retention: 24 * time.Hour}
}

// KeepForeverPolicy returns a policy that never evicts.
func KeepForeverPolicy() Policy {
	return Policy{}
}

// Expired reports whether rec may be evicted at now. Pending records never
// expire.
func (p Policy) Expired(rec Record, now time.Time) bool {
	if p.Retention <= 0 || !rec.State.Terminal() {
		return false
	}
	return now.Sub(rec.EndedAt) > p.Retention
}
