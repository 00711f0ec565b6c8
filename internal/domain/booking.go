package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending        BookingStatus = "pending"
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingProcessing     BookingStatus = "processing"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
)

// Booking carries only the columns the payment flow reads or writes.
type Booking struct {
	ID                 uuid.UUID
	GuestID            uuid.UUID
	GuestEmail         string
	TotalPrice         decimal.Decimal
	Currency           string
	Status             BookingStatus
	PaymentIntentID    string
	PaymentProvider    string
	PaymentStatus      PaymentStatus
	PaymentCompletedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b *Booking) IsOwnedBy(guestID uuid.UUID) bool {
	return guestID != uuid.Nil && b.GuestID == guestID
}

// IntentUpdate is the write performed once a provider has accepted a new intent.
type IntentUpdate struct {
	PaymentIntentID string
	PaymentProvider string
	PaymentStatus   PaymentStatus
	Status          BookingStatus
}
