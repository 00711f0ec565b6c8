package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStripe_EveryOperationFails(t *testing.T) {
	p := NewStripeProvider(StripeConfig{Enabled: true, SecretKey: "sk_test"})
	ctx := context.Background()

	res := p.CreatePaymentIntent(ctx, IntentRequest{BookingID: bookingID, Amount: decimal.NewFromInt(5)})
	assert.False(t, res.Success)
	assert.True(t, res.NotImplemented)
	assert.Equal(t, "Stripe integration is not yet available", res.Error)

	res = p.ConfirmPayment(ctx, ConfirmRequest{PaymentIntentID: "pi_1"})
	assert.False(t, res.Success)
	assert.True(t, res.NotImplemented)

	intent, err := p.GetPaymentStatus(ctx, "pi_1")
	assert.Nil(t, intent)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.False(t, p.RequiresManualReview())
}
