package payment

import (
	"context"
	"errors"

	"booking-payments/internal/domain"
)

var ErrNotImplemented = errors.New("stripe integration is not yet available")

const stripeUnavailable = "Stripe integration is not yet available"

// StripeProvider is a placeholder: every operation fails.
type StripeProvider struct {
	cfg StripeConfig
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	return &StripeProvider{cfg: cfg}
}

func (p *StripeProvider) Name() string { return "Stripe" }

func (p *StripeProvider) RequiresManualReview() bool { return false }

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, req IntentRequest) Result {
	r := failed(stripeUnavailable)
	r.NotImplemented = true
	return r
}

func (p *StripeProvider) ConfirmPayment(ctx context.Context, req ConfirmRequest) Result {
	r := failed(stripeUnavailable)
	r.NotImplemented = true
	return r
}

// GetPaymentStatus returns ErrNotImplemented rather than a default status, so an
// unimplemented provider is never mistaken for a pending payment.
func (p *StripeProvider) GetPaymentStatus(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error) {
	return nil, ErrNotImplemented
}
