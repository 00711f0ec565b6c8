package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
)

// PaymentRecord is an append-only ledger row written on automatic confirmation.
type PaymentRecord struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	Amount        decimal.Decimal
	PaymentStatus PaymentStatus
	PaymentMethod string
	CreatedAt     time.Time
}
