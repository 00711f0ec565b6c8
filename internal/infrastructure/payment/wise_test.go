package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"booking-payments/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingID = "3f2a9c1e-7b4d-4e8a-9f10-2c3d4e5f6a7b"

func TestWise_CreatePaymentIntent(t *testing.T) {
	p := NewWiseProvider(WiseConfig{Enabled: true, AccountID: "acct-998", Currency: "EUR"})

	res := p.CreatePaymentIntent(context.Background(), IntentRequest{
		BookingID: bookingID,
		Amount:    decimal.RequireFromString("250"),
		Currency:  "eur",
	})

	require.True(t, res.Success, res.Error)
	assert.True(t, res.RequiresManualReview)
	assert.Equal(t, domain.IntentPending, res.Status)
	assert.True(t, strings.HasPrefix(res.PaymentIntentID, "wise_"))
	assert.True(t, strings.HasSuffix(res.PaymentIntentID, "_3f2a9c1e"))
	require.NotNil(t, res.Instructions)
	assert.Equal(t, "250.00", res.Instructions.Amount)
	assert.Equal(t, "EUR", res.Instructions.Currency)
	assert.Equal(t, bookingID, res.Instructions.Reference)
	assert.Equal(t, "acct-998", res.Instructions.AccountID)
	assert.Contains(t, res.Instructions.Text, "250.00 EUR")
	assert.Contains(t, res.Instructions.Text, bookingID)
}

func TestWise_DefaultsToConfiguredCurrency(t *testing.T) {
	p := NewWiseProvider(WiseConfig{Enabled: true, AccountID: "acct", Currency: "GBP"})

	res := p.CreatePaymentIntent(context.Background(), IntentRequest{BookingID: bookingID, Amount: decimal.NewFromInt(10)})
	require.True(t, res.Success)
	assert.Equal(t, "GBP", res.Instructions.Currency)
}

func TestWise_TwoIntentsSameBooking(t *testing.T) {
	p := NewWiseProvider(WiseConfig{Enabled: true, AccountID: "acct", Currency: "EUR"})
	tick := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	first := p.CreatePaymentIntent(context.Background(), IntentRequest{BookingID: bookingID, Amount: decimal.NewFromInt(100)})
	second := p.CreatePaymentIntent(context.Background(), IntentRequest{BookingID: bookingID, Amount: decimal.NewFromInt(120)})

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.PaymentIntentID, second.PaymentIntentID)

	normalize := func(r Result) string {
		return strings.ReplaceAll(r.Instructions.Text, r.Instructions.Amount, "<amount>")
	}
	assert.Equal(t, normalize(first), normalize(second))
}

func TestWise_RejectsInvalidRequests(t *testing.T) {
	p := NewWiseProvider(WiseConfig{Enabled: true, AccountID: "acct"})

	res := p.CreatePaymentIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1)})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = p.CreatePaymentIntent(context.Background(), IntentRequest{BookingID: bookingID, Amount: decimal.Zero})
	assert.False(t, res.Success)
}

func TestWise_ConfirmAndStatus(t *testing.T) {
	p := NewWiseProvider(WiseConfig{Enabled: true, AccountID: "acct", Currency: "EUR"})
	assert.True(t, p.RequiresManualReview())

	res := p.ConfirmPayment(context.Background(), ConfirmRequest{PaymentIntentID: "wise_1_abc", BookingID: bookingID})
	assert.True(t, res.Success)
	assert.True(t, res.RequiresManualReview)

	intent, err := p.GetPaymentStatus(context.Background(), "wise_1_abc")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPending, intent.Status)
	assert.True(t, intent.Amount.IsZero())
	assert.Equal(t, "", intent.BookingID)
}
