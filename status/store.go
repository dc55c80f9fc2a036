package status

import (
	"context"
	"errors"
	"strings"
)

// MaxFingerprintLength is the maximum accepted fingerprint length.
const MaxFingerprintLength = 128

// Sentinel errors for store operations.
var (
	ErrNilStore           = errors.New("status: store is nil")
	ErrInvalidFingerprint = errors.New("status: fingerprint is invalid")
	ErrNotFound           = errors.New("status: record not found")
	ErrTerminal           = errors.New("status: record is terminal")
	ErrInvalidState       = errors.New("status: invalid state transition")
)

// Store holds delivery records keyed by fingerprint.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get returns a copy; mutating it does not affect the store.
// - Create is insert-if-absent and never overwrites.
// - Terminal records are immutable.
type Store interface {
	// Get returns the record for fingerprint. Returns (Record{}, false) on miss.
	Get(ctx context.Context, fingerprint string) (Record, bool)

	// Create inserts rec unless a record with the same fingerprint exists.
	// It returns the stored record and whether rec was inserted.
	Create(ctx context.Context, rec Record) (Record, bool, error)

	// Update applies fn to the stored pending record.
	Update(ctx context.Context, fingerprint string, fn func(*Record)) (Record, error)

	// Len returns the number of tracked records.
	Len() int
}

// ValidateFingerprint checks that fingerprint is a usable store key.
func ValidateFingerprint(fingerprint string) error {
	if strings.TrimSpace(fingerprint) == "" {
		return ErrInvalidFingerprint
	}
	if len(fingerprint) > MaxFingerprintLength {
		return ErrInvalidFingerprint
	}
	if strings.ContainsAny(fingerprint, " \n\r\t") {
		return ErrInvalidFingerprint
	}
	return nil
}
