package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booking-payments/internal/auth"
	"booking-payments/internal/domain"
	"booking-payments/internal/infrastructure/payment"
	"booking-payments/internal/infrastructure/payment/paypaltest"
	"booking-payments/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type fixture struct {
	bookings   *repo.InMemoryBookingRepo
	payments   *repo.InMemoryPaymentRepo
	settings   *repo.InMemorySettingsRepo
	paypal     *paypaltest.Server
	reconciler *recordingReconciler
	notifier   *recordingNotifier
	guest      *auth.Caller
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	payments := repo.NewInMemoryPaymentRepo()
	return &fixture{
		bookings:   repo.NewInMemoryBookingRepo(payments),
		payments:   payments,
		settings:   repo.NewInMemorySettingsRepo(),
		paypal:     paypaltest.NewServer(t),
		reconciler: &recordingReconciler{},
		notifier:   &recordingNotifier{},
		guest:      &auth.Caller{UserID: uuid.New(), Email: "guest@example.com"},
		now:        time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC),
	}
}

func (f *fixture) service(bookings repo.BookingRepo, payments repo.PaymentRepo) PaymentService {
	if bookings == nil {
		bookings = f.bookings
	}
	if payments == nil {
		payments = f.payments
	}
	registry := payment.NewRegistry(payment.WithPayPalOptions(payment.WithPayPalBaseURL(f.paypal.URL)))
	return NewPaymentService(bookings, payments, payment.NewLoader(f.settings), registry,
		WithReconciler(f.reconciler),
		WithNotifier(f.notifier),
		WithClock(func() time.Time { return f.now }),
	)
}

func (f *fixture) set(t *testing.T, values map[string]any) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, f.settings.Upsert(context.Background(), k, v))
	}
}

func (f *fixture) enableWise(t *testing.T) {
	f.set(t, map[string]any{
		payment.KeyWiseEnabled:   true,
		payment.KeyWiseAccountID: "wise-acct-001",
	})
}

func (f *fixture) enablePayPal(t *testing.T) {
	f.set(t, map[string]any{
		payment.KeyPrimaryProvider:    "paypal",
		payment.KeyPayPalEnabled:      true,
		payment.KeyPayPalClientID:     paypaltest.ClientID,
		payment.KeyPayPalClientSecret: paypaltest.ClientSecret,
	})
}

func (f *fixture) seedBooking(mutate ...func(*domain.Booking)) domain.Booking {
	b := domain.Booking{
		ID:         uuid.New(),
		GuestID:    f.guest.UserID,
		GuestEmail: "guest@example.com",
		TotalPrice: decimal.RequireFromString("250.00"),
		Currency:   "EUR",
		Status:     domain.BookingPending,
	}
	for _, m := range mutate {
		m(&b)
	}
	f.bookings.Save(b)
	return b
}

func (f *fixture) booking(t *testing.T, id uuid.UUID) *domain.Booking {
	t.Helper()
	b, err := f.bookings.FindById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type recordingReconciler struct {
	mu       sync.Mutex
	failures []PersistFailure
}

func (r *recordingReconciler) PersistFailed(ctx context.Context, f PersistFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

type recordingNotifier struct {
	instructions []uuid.UUID
	confirmed    []uuid.UUID
}

func (n *recordingNotifier) PaymentInstructions(ctx context.Context, b *domain.Booking, ins *payment.TransferInstructions) {
	n.instructions = append(n.instructions, b.ID)
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, b *domain.Booking, provider string) {
	n.confirmed = append(n.confirmed, b.ID)
}

// failingBookings fails the chosen writes and delegates everything else.
type failingBookings struct {
	*repo.InMemoryBookingRepo
	failIntentUpdate bool
	failSettle       bool
}

func (r *failingBookings) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, update domain.IntentUpdate) error {
	if r.failIntentUpdate {
		return errDiskFull
	}
	return r.InMemoryBookingRepo.UpdatePaymentIntent(ctx, id, update)
}

func (r *failingBookings) MarkPaymentSucceeded(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	if r.failSettle {
		return errDiskFull
	}
	return r.InMemoryBookingRepo.MarkPaymentSucceeded(ctx, id, completedAt)
}

type failingLedger struct{}

func (failingLedger) CreatePayment(ctx context.Context, p *domain.PaymentRecord) error {
	return errDiskFull
}

func (failingLedger) FindByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.PaymentRecord, error) {
	return nil, nil
}

type brokenBookings struct{ repo.BookingRepo }

func (brokenBookings) FindById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return nil, errors.New("connection refused")
}
