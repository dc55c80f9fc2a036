package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDeliveryFailed matches every single-attempt provider failure.
var ErrDeliveryFailed = errors.New("provider: delivery failed")

// ErrNilReceipt is the cause recorded when a provider reports success
// without a receipt.
var ErrNilReceipt = errors.New("nil receipt")

// Message is a send request as seen by providers.
type Message struct {
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Receipt is returned by a provider on successful delivery.
type Receipt struct {
	ProviderID string    `json:"provider_id"`
	MessageID  string    `json:"message_id"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

// StatusDelivered is the receipt status reported on success.
const StatusDelivered = "delivered"

//go:generate go run go.uber.org/mock/mockgen -source=provider.go -destination=mock_provider.go -package=provider

// Provider attempts deliveries.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Deliver should honor cancellation/deadlines where it can.
// - Errors: a failed attempt returns a non-nil error and a nil receipt.
type Provider interface {
	// Name identifies the provider. It must be unique within a Registry.
	Name() string

	// Deliver attempts a single delivery of msg.
	Deliver(ctx context.Context, msg Message) (*Receipt, error)
}

// DeliveryError is a failed attempt reported by a named provider.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s provider failed - %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Is makes every DeliveryError match ErrDeliveryFailed.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}
