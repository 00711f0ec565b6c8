package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-payments/internal/domain"
	"booking-payments/internal/repo"
)

// Settler applies the confirmed transition: booking succeeded/confirmed, then
// one ledger row. A ledger failure does not roll back the booking update.
type Settler struct {
	bookings   repo.BookingRepo
	payments   repo.PaymentRepo
	reconciler Reconciler
	now        func() time.Time
}

func NewSettler(bookings repo.BookingRepo, payments repo.PaymentRepo, reconciler Reconciler) *Settler {
	if reconciler == nil {
		reconciler = NewLogReconciler(nil)
	}
	return &Settler{bookings: bookings, payments: payments, reconciler: reconciler, now: time.Now}
}

// Settle marks b paid through method. Failures are reported to the
// reconciler and returned so background callers can count them. When the
// booking was already settled by a concurrent caller nothing is written and
// repo.ErrAlreadySettled is returned.
func (s *Settler) Settle(ctx context.Context, b *domain.Booking, method string) error {
	completedAt := s.now().UTC()
	if err := s.bookings.MarkPaymentSucceeded(ctx, b.ID, completedAt); err != nil {
		if errors.Is(err, repo.ErrAlreadySettled) {
			return err
		}
		s.reconciler.PersistFailed(ctx, PersistFailure{
			BookingID:       b.ID,
			Stage:           StageBookingUpdate,
			PaymentIntentID: b.PaymentIntentID,
			Provider:        method,
			Err:             err,
		})
		return fmt.Errorf("mark booking %s paid: %w", b.ID, err)
	}
	b.Status = domain.BookingConfirmed
	b.PaymentStatus = domain.PaymentSucceeded
	b.PaymentCompletedAt = &completedAt

	return s.RecordLedger(ctx, b, method)
}

// RecordLedger inserts the ledger row for a confirmed booking. An existing row
// is reported as repo.ErrLedgerRowExists and left as is.
func (s *Settler) RecordLedger(ctx context.Context, b *domain.Booking, method string) error {
	err := s.payments.CreatePayment(ctx, &domain.PaymentRecord{
		BookingID:     b.ID,
		Amount:        b.TotalPrice,
		PaymentStatus: domain.PaymentSucceeded,
		PaymentMethod: method,
	})
	if errors.Is(err, repo.ErrLedgerRowExists) {
		return err
	}
	if err != nil {
		s.reconciler.PersistFailed(ctx, PersistFailure{
			BookingID:       b.ID,
			Stage:           StageLedgerInsert,
			PaymentIntentID: b.PaymentIntentID,
			Provider:        method,
			Err:             err,
		})
		return fmt.Errorf("insert ledger row for booking %s: %w", b.ID, err)
	}
	return nil
}
