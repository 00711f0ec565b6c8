package domain

import "github.com/shopspring/decimal"

type IntentStatus string

const (
	IntentPending        IntentStatus = "pending"
	IntentRequiresAction IntentStatus = "requires_action"
	IntentSucceeded      IntentStatus = "succeeded"
	IntentFailed         IntentStatus = "failed"
)

// PaymentIntent is a provider-neutral transaction handle. It is never persisted;
// the booking row is the durable side effect.
type PaymentIntent struct {
	ID        string
	Amount    decimal.Decimal
	Currency  string
	BookingID string
	Status    IntentStatus
	Metadata  map[string]any
}
