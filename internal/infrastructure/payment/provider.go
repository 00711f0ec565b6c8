package payment

import (
	"context"

	"booking-payments/internal/domain"

	"github.com/shopspring/decimal"
)

// Provider identifiers as stored in settings and on bookings.
const (
	ProviderWise   = "wise"
	ProviderPayPal = "paypal"
	ProviderStripe = "stripe"
)

// Provider is the contract every payment backend satisfies. CreatePaymentIntent
// and ConfirmPayment never return errors: remote rejections and transport
// failures come back as a Result with Success=false. GetPaymentStatus may fail.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) Result
	ConfirmPayment(ctx context.Context, req ConfirmRequest) Result
	GetPaymentStatus(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error)
	Name() string
	RequiresManualReview() bool
}

type IntentRequest struct {
	BookingID string
	Amount    decimal.Decimal
	Currency  string
	Metadata  map[string]any
}

type ConfirmRequest struct {
	PaymentIntentID string
	BookingID       string
	Metadata        map[string]any
}

// TransferInstructions tell a guest how to pay by manual transfer.
type TransferInstructions struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

type Result struct {
	Success              bool
	PaymentIntentID      string
	ClientSecret         string
	Status               domain.IntentStatus
	Instructions         *TransferInstructions
	RequiresManualReview bool
	NotImplemented       bool
	Error                string
}

func failed(msg string) Result {
	return Result{Success: false, Status: domain.IntentFailed, Error: msg}
}
