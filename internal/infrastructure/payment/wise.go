package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booking-payments/internal/domain"

	"github.com/shopspring/decimal"
)

// WiseProvider handles manual bank transfers. It never calls a remote API:
// settlement is asserted later by an administrator.
type WiseProvider struct {
	cfg WiseConfig
	now func() time.Time
}

func NewWiseProvider(cfg WiseConfig) *WiseProvider {
	return &WiseProvider{cfg: cfg, now: time.Now}
}

func (p *WiseProvider) Name() string { return "Wise" }

func (p *WiseProvider) RequiresManualReview() bool { return true }

func (p *WiseProvider) CreatePaymentIntent(ctx context.Context, req IntentRequest) Result {
	if req.BookingID == "" {
		return failed("booking reference is required for a bank transfer")
	}
	if !req.Amount.IsPositive() {
		return failed("amount must be greater than zero")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = p.cfg.Currency
	}
	amount := req.Amount.StringFixed(2)

	return Result{
		Success:         true,
		PaymentIntentID: fmt.Sprintf("wise_%d_%s", p.now().UnixNano(), bookingFragment(req.BookingID)),
		Status:          domain.IntentPending,
		Instructions: &TransferInstructions{
			AccountID: p.cfg.AccountID,
			Amount:    amount,
			Currency:  currency,
			Reference: req.BookingID,
			Text: fmt.Sprintf(
				"Please transfer %s %s to Wise account %s. You must use %s as the payment reference so we can match your transfer to this booking.",
				amount, currency, p.cfg.AccountID, req.BookingID,
			),
		},
		RequiresManualReview: true,
	}
}

// ConfirmPayment records the guest's claim to have paid; nothing is verified here.
func (p *WiseProvider) ConfirmPayment(ctx context.Context, req ConfirmRequest) Result {
	return Result{
		Success:              true,
		PaymentIntentID:      req.PaymentIntentID,
		Status:               domain.IntentPending,
		RequiresManualReview: true,
	}
}

// GetPaymentStatus always reports pending: there is no remote source of truth
// for a bank transfer, so polling it is not meaningful.
func (p *WiseProvider) GetPaymentStatus(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error) {
	return &domain.PaymentIntent{
		ID:       paymentIntentID,
		Amount:   decimal.Zero,
		Currency: p.cfg.Currency,
		Status:   domain.IntentPending,
	}, nil
}

func bookingFragment(bookingID string) string {
	s := strings.ReplaceAll(bookingID, "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
