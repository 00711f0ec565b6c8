package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"booking-payments/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadySettled  = errors.New("booking payment already settled")
)

type BookingRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	UpdatePaymentIntent(ctx context.Context, id uuid.UUID, update domain.IntentUpdate) error
	MarkPaymentSucceeded(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Booking, error)
	FindConfirmedWithoutLedger(ctx context.Context, limit int) ([]domain.Booking, error)
}

type bookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) BookingRepo {
	return &bookingRepo{db: db}
}

const bookingColumns = `id, guest_id, guest_email, total_price, currency, status,
	payment_intent_id, payment_provider, payment_status, payment_completed_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b           domain.Booking
		guestEmail  sql.NullString
		intentID    sql.NullString
		provider    sql.NullString
		payStatus   sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(
		&b.ID,
		&b.GuestID,
		&guestEmail,
		&b.TotalPrice,
		&b.Currency,
		&b.Status,
		&intentID,
		&provider,
		&payStatus,
		&completedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.GuestEmail = guestEmail.String
	b.PaymentIntentID = intentID.String
	b.PaymentProvider = provider.String
	b.PaymentStatus = domain.PaymentStatus(payStatus.String)
	if completedAt.Valid {
		t := completedAt.Time
		b.PaymentCompletedAt = &t
	}
	return &b, nil
}

// FindById returns nil, nil when the booking does not exist.
func (r *bookingRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepo) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, update domain.IntentUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_intent_id = $2,
		    payment_provider = $3,
		    payment_status = $4,
		    status = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, update.PaymentIntentID, update.PaymentProvider, update.PaymentStatus, update.Status)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// MarkPaymentSucceeded applies the confirmed transition at most once. It
// returns ErrAlreadySettled when the booking is already succeeded.
func (r *bookingRepo) MarkPaymentSucceeded(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = $2,
		    status = $3,
		    payment_completed_at = $4,
		    updated_at = now()
		WHERE id = $1 AND payment_status IS DISTINCT FROM $2
	`, id, domain.PaymentSucceeded, domain.BookingConfirmed, completedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrBookingNotFound
	}
	return ErrAlreadySettled
}

func (r *bookingRepo) FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE payment_status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`, domain.PaymentProcessing, time.Now().Add(-olderThan), limit)
}

func (r *bookingRepo) FindConfirmedWithoutLedger(ctx context.Context, limit int) ([]domain.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND payment_status = $2
		AND NOT EXISTS (SELECT 1 FROM payments WHERE payments.booking_id = bookings.id)
		ORDER BY updated_at
		LIMIT $3
	`, domain.BookingConfirmed, domain.PaymentSucceeded, limit)
}

func (r *bookingRepo) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
