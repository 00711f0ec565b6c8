package service

import (
	"context"
	"log/slog"
	"time"

	"booking-payments/internal/domain"
	"booking-payments/internal/infrastructure/email"
	"booking-payments/internal/infrastructure/payment"
)

// Notifier tells guests about payment progress. Delivery is best effort.
type Notifier interface {
	PaymentInstructions(ctx context.Context, b *domain.Booking, ins *payment.TransferInstructions)
	BookingConfirmed(ctx context.Context, b *domain.Booking, provider string)
}

type EmailSender interface {
	SendTemplate(ctx context.Context, to string, name email.Template, data map[string]any) error
}

// DefaultNotifyTimeout bounds the delivery of one guest notification.
const DefaultNotifyTimeout = 3 * time.Second

type EmailNotifier struct {
	sender  EmailSender
	timeout time.Duration
}

func NewEmailNotifier(sender EmailSender) *EmailNotifier {
	return &EmailNotifier{sender: sender, timeout: DefaultNotifyTimeout}
}

func (n *EmailNotifier) PaymentInstructions(ctx context.Context, b *domain.Booking, ins *payment.TransferInstructions) {
	if ins == nil {
		return
	}
	n.send(ctx, b, email.TemplatePaymentInstructions, map[string]any{
		"BookingID": b.ID.String(),
		"Amount":    ins.Amount,
		"Currency":  ins.Currency,
		"AccountID": ins.AccountID,
	})
}

func (n *EmailNotifier) BookingConfirmed(ctx context.Context, b *domain.Booking, provider string) {
	n.send(ctx, b, email.TemplateBookingConfirmation, map[string]any{
		"BookingID": b.ID.String(),
		"Amount":    b.TotalPrice.StringFixed(2),
		"Currency":  b.Currency,
		"Provider":  provider,
	})
}

func (n *EmailNotifier) send(ctx context.Context, b *domain.Booking, tmpl email.Template, data map[string]any) {
	if b.GuestEmail == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.sender.SendTemplate(ctx, b.GuestEmail, tmpl, data); err != nil {
		slog.WarnContext(ctx, "guest notification not sent", "booking_id", b.ID, "template", string(tmpl), "error", err)
	}
}
