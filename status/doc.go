// Package status tracks the lifecycle of delivery requests.
//
// Requests are keyed by a content fingerprint derived from the recipient,
// subject and body. A record starts pending and ends either sent or failed;
// terminal records never change again and are evicted once they outlive the
// store's retention policy.
package status
