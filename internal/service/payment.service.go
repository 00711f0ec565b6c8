package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"booking-payments/internal/auth"
	"booking-payments/internal/domain"
	"booking-payments/internal/infrastructure/payment"
	"booking-payments/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateIntentRequest struct {
	BookingID string           `json:"booking_id"`
	Amount    *decimal.Decimal `json:"amount"`
	Currency  string           `json:"currency,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

type CreateIntentResponse struct {
	Success              bool                          `json:"success"`
	PaymentIntentID      string                        `json:"payment_intent_id"`
	ClientSecret         string                        `json:"client_secret,omitempty"`
	Instructions         *payment.TransferInstructions `json:"instructions,omitempty"`
	Provider             string                        `json:"provider"`
	RequiresManualReview bool                          `json:"requires_manual_review"`
}

type ConfirmRequest struct {
	PaymentIntentID string         `json:"payment_intent_id"`
	BookingID       string         `json:"booking_id"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type ConfirmResponse struct {
	Success              bool                 `json:"success"`
	RequiresManualReview bool                 `json:"requires_manual_review,omitempty"`
	Message              string               `json:"message,omitempty"`
	PaymentStatus        domain.PaymentStatus `json:"payment_status,omitempty"`
	BookingStatus        domain.BookingStatus `json:"booking_status,omitempty"`
}

type ProviderTestResponse struct {
	Success              bool                          `json:"success"`
	Provider             string                        `json:"provider"`
	PaymentIntentID      string                        `json:"payment_intent_id,omitempty"`
	Status               domain.IntentStatus           `json:"status,omitempty"`
	Instructions         *payment.TransferInstructions `json:"instructions,omitempty"`
	RequiresManualReview bool                          `json:"requires_manual_review"`
	NotImplemented       bool                          `json:"not_implemented,omitempty"`
	Error                string                        `json:"error,omitempty"`
}

type ProviderOverview struct {
	SelectedProvider string                  `json:"selected_provider"`
	ActiveProvider   string                  `json:"active_provider,omitempty"`
	Providers        []payment.ProviderState `json:"providers"`
}

const awaitingReviewMessage = "Payment submitted and awaiting admin approval"

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, caller *auth.Caller, req CreateIntentRequest) (*CreateIntentResponse, error)
	ConfirmPayment(ctx context.Context, caller *auth.Caller, req ConfirmRequest) (*ConfirmResponse, error)
	TestProvider(ctx context.Context, name string) (*ProviderTestResponse, error)
	ProviderOverview(ctx context.Context) (*ProviderOverview, error)
}

type ConfigLoader interface {
	Load(ctx context.Context) (*payment.Config, error)
}

type ProviderRegistry interface {
	ActiveProvider(cfg *payment.Config) (payment.Provider, error)
	ProviderByName(cfg *payment.Config, name string) (payment.Provider, error)
	States(cfg *payment.Config) []payment.ProviderState
}

type paymentService struct {
	bookingRepo     repo.BookingRepo
	loader          ConfigLoader
	registry        ProviderRegistry
	settler         *Settler
	reconciler      Reconciler
	notifier        Notifier
	defaultCurrency string
}

type Option func(*paymentService)

func WithReconciler(r Reconciler) Option {
	return func(s *paymentService) { s.reconciler = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *paymentService) { s.notifier = n }
}

func WithDefaultCurrency(currency string) Option {
	return func(s *paymentService) {
		if currency != "" {
			s.defaultCurrency = strings.ToUpper(currency)
		}
	}
}

// WithClock overrides the time source used for payment_completed_at.
func WithClock(now func() time.Time) Option {
	return func(s *paymentService) { s.settler.now = now }
}

func NewPaymentService(
	bookingRepo repo.BookingRepo,
	paymentRepo repo.PaymentRepo,
	loader ConfigLoader,
	registry ProviderRegistry,
	opts ...Option,
) PaymentService {
	s := &paymentService{
		bookingRepo:     bookingRepo,
		loader:          loader,
		registry:        registry,
		reconciler:      NewLogReconciler(nil),
		defaultCurrency: payment.DefaultCurrency,
	}
	s.settler = NewSettler(bookingRepo, paymentRepo, nil)
	for _, opt := range opts {
		opt(s)
	}
	s.settler.reconciler = s.reconciler
	return s
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, caller *auth.Caller, req CreateIntentRequest) (*CreateIntentResponse, error) {
	if caller == nil {
		return nil, errUnauthorized
	}
	if req.BookingID == "" || req.Amount == nil || req.Amount.IsZero() {
		return nil, errMissingIntentReq
	}
	if req.Amount.IsNegative() {
		return nil, errInvalidAmount
	}

	booking, err := s.ownedBooking(ctx, caller, req.BookingID)
	if err != nil {
		return nil, err
	}

	provider, err := s.activeProvider(ctx)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = booking.Currency
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	res := provider.CreatePaymentIntent(ctx, payment.IntentRequest{
		BookingID: booking.ID.String(),
		Amount:    *req.Amount,
		Currency:  strings.ToUpper(currency),
		Metadata:  req.Metadata,
	})
	if !res.Success {
		return nil, providerFailure(res)
	}

	manual := provider.RequiresManualReview()
	providerName := strings.ToLower(provider.Name())
	update := domain.IntentUpdate{
		PaymentIntentID: res.PaymentIntentID,
		PaymentProvider: providerName,
		PaymentStatus:   domain.PaymentProcessing,
		Status:          domain.BookingProcessing,
	}
	if manual {
		update.PaymentStatus = domain.PaymentPending
		update.Status = domain.BookingPendingPayment
	}

	if err := s.bookingRepo.UpdatePaymentIntent(ctx, booking.ID, update); err != nil {
		s.reconciler.PersistFailed(ctx, PersistFailure{
			BookingID:       booking.ID,
			Stage:           StageIntentUpdate,
			PaymentIntentID: res.PaymentIntentID,
			Provider:        providerName,
			Err:             err,
		})
	}

	slog.InfoContext(ctx, "payment intent created",
		"booking_id", booking.ID,
		"provider", providerName,
		"payment_intent_id", res.PaymentIntentID,
		"manual_review", manual,
	)

	if manual && s.notifier != nil {
		s.notifier.PaymentInstructions(ctx, booking, res.Instructions)
	}

	return &CreateIntentResponse{
		Success:              true,
		PaymentIntentID:      res.PaymentIntentID,
		ClientSecret:         res.ClientSecret,
		Instructions:         res.Instructions,
		Provider:             provider.Name(),
		RequiresManualReview: manual,
	}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, caller *auth.Caller, req ConfirmRequest) (*ConfirmResponse, error) {
	if caller == nil {
		return nil, errUnauthorized
	}
	if req.PaymentIntentID == "" || req.BookingID == "" {
		return nil, errMissingConfirm
	}

	booking, err := s.ownedBooking(ctx, caller, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentIntentID != req.PaymentIntentID {
		return nil, errIntentMismatch
	}

	provider, err := s.activeProvider(ctx)
	if err != nil {
		return nil, err
	}

	res := provider.ConfirmPayment(ctx, payment.ConfirmRequest{
		PaymentIntentID: req.PaymentIntentID,
		BookingID:       booking.ID.String(),
		Metadata:        req.Metadata,
	})
	if !res.Success {
		return nil, providerFailure(res)
	}

	providerName := strings.ToLower(provider.Name())
	if res.RequiresManualReview {
		slog.InfoContext(ctx, "payment awaiting review", "booking_id", booking.ID, "provider", providerName)
		return &ConfirmResponse{
			Success:              true,
			RequiresManualReview: true,
			Message:              awaitingReviewMessage,
		}, nil
	}

	// Failures are already reported to the reconciler; the guest has paid.
	_ = s.settler.Settle(ctx, booking, providerName)

	slog.InfoContext(ctx, "payment confirmed",
		"booking_id", booking.ID,
		"provider", providerName,
		"payment_intent_id", req.PaymentIntentID,
	)
	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, booking, provider.Name())
	}

	return &ConfirmResponse{
		Success:       true,
		PaymentStatus: domain.PaymentSucceeded,
		BookingStatus: domain.BookingConfirmed,
	}, nil
}

// TestProvider creates a 1.00 intent through the named provider, bypassing
// the primary selection. The provider result is returned as is.
func (s *paymentService) TestProvider(ctx context.Context, name string) (*ProviderTestResponse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, newError(KindBadRequest, "Missing required field: provider")
	}
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := s.registry.ProviderByName(cfg, name)
	if err != nil {
		return nil, configurationFailure(err)
	}

	res := provider.CreatePaymentIntent(ctx, payment.IntentRequest{
		BookingID: "test_" + uuid.NewString(),
		Amount:    decimal.NewFromInt(1),
		Currency:  s.defaultCurrency,
		Metadata:  map[string]any{"test": true},
	})
	return &ProviderTestResponse{
		Success:              res.Success,
		Provider:             provider.Name(),
		PaymentIntentID:      res.PaymentIntentID,
		Status:               res.Status,
		Instructions:         res.Instructions,
		RequiresManualReview: provider.RequiresManualReview(),
		NotImplemented:       res.NotImplemented,
		Error:                res.Error,
	}, nil
}

func (s *paymentService) ProviderOverview(ctx context.Context) (*ProviderOverview, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	overview := &ProviderOverview{
		SelectedProvider: cfg.SelectedProvider,
		Providers:        s.registry.States(cfg),
	}
	if p, err := s.registry.ActiveProvider(cfg); err == nil {
		overview.ActiveProvider = p.Name()
	}
	return overview, nil
}

// ownedBooking loads the booking and checks it belongs to caller. Ownership is
// checked on every call.
func (s *paymentService) ownedBooking(ctx context.Context, caller *auth.Caller, rawID string) (*domain.Booking, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errBookingNotFound
	}
	booking, err := s.bookingRepo.FindById(ctx, id)
	if err != nil {
		return nil, wrapError(KindInternal, "Failed to load booking", err)
	}
	if booking == nil {
		return nil, errBookingNotFound
	}
	if !booking.IsOwnedBy(caller.UserID) {
		return nil, errNotBookingOwner
	}
	return booking, nil
}

func (s *paymentService) activeProvider(ctx context.Context) (payment.Provider, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := s.registry.ActiveProvider(cfg)
	if err != nil {
		return nil, configurationFailure(err)
	}
	return provider, nil
}

func (s *paymentService) loadConfig(ctx context.Context) (*payment.Config, error) {
	cfg, err := s.loader.Load(ctx)
	if err != nil {
		return nil, wrapError(KindInternal, "Failed to load payment configuration", err)
	}
	return cfg, nil
}

func configurationFailure(err error) error {
	if errors.Is(err, payment.ErrUnknownProvider) {
		return wrapError(KindBadRequest, "Unknown payment provider", err)
	}
	return newError(KindProviderConfiguration, err.Error())
}

func providerFailure(res payment.Result) error {
	msg := res.Error
	if msg == "" {
		msg = "Payment provider rejected the request"
	}
	if res.NotImplemented {
		return newError(KindNotImplemented, msg)
	}
	return newError(KindProviderOperation, msg)
}
