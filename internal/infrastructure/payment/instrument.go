package payment

import (
	"context"
	"strings"
	"time"

	"booking-payments/internal/domain"
)

// Observer receives the outcome and latency of each provider call.
type Observer interface {
	ObserveProviderCall(provider, operation, outcome string, elapsed time.Duration)
}

type instrumented struct {
	Provider
	observer Observer
}

func (p *instrumented) CreatePaymentIntent(ctx context.Context, req IntentRequest) Result {
	start := time.Now()
	res := p.Provider.CreatePaymentIntent(ctx, req)
	p.observe("create_intent", resultOutcome(res), start)
	return res
}

func (p *instrumented) ConfirmPayment(ctx context.Context, req ConfirmRequest) Result {
	start := time.Now()
	res := p.Provider.ConfirmPayment(ctx, req)
	p.observe("confirm", resultOutcome(res), start)
	return res
}

func (p *instrumented) GetPaymentStatus(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error) {
	start := time.Now()
	intent, err := p.Provider.GetPaymentStatus(ctx, paymentIntentID)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.observe("get_status", outcome, start)
	return intent, err
}

func (p *instrumented) observe(operation, outcome string, start time.Time) {
	p.observer.ObserveProviderCall(strings.ToLower(p.Provider.Name()), operation, outcome, time.Since(start))
}

func resultOutcome(r Result) string {
	switch {
	case r.Success:
		return "success"
	case r.NotImplemented:
		return "not_implemented"
	default:
		return "failure"
	}
}
