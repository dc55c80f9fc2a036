package status

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// FingerprintPrefix prefixes every fingerprint.
const FingerprintPrefix = "msg:"

// Fingerprint derives the idempotency key for a message.
// Format: msg:<hash>
// where hash is the hex SHA-256 of {"body":...,"subject":...,"to":...}
// with every key and value Go-quoted. Timestamps are not part of the key.
func Fingerprint(to, subject, body string) string {
	canonical := canonicalize(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})

	hash := sha256.Sum256(canonical)
	return FingerprintPrefix + hex.EncodeToString(hash[:])
}

// canonicalize encodes fields as an object with sorted keys. Values are
// quoted with strconv.Quote, which keeps invalid UTF-8 bytes as \x escapes
// so distinct byte strings never share an encoding.
func canonicalize(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		result = strconv.AppendQuote(result, k)
		result = append(result, ':')
		result = strconv.AppendQuote(result, fields[k])
	}
	return append(result, '}')
}
