package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"booking-payments/internal/domain"

	"github.com/google/uuid"
)

// ErrLedgerRowExists is returned when a booking already has its succeeded
// ledger row.
var ErrLedgerRowExists = errors.New("ledger row already exists for booking")

// PaymentRepo is the append-only payment ledger. Rows are never updated.
// A booking has at most one succeeded row.
type PaymentRepo interface {
	CreatePayment(ctx context.Context, payment *domain.PaymentRecord) error
	FindByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.PaymentRecord, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreatePayment(ctx context.Context, payment *domain.PaymentRecord) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payments (id, booking_id, amount, payment_status, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_id) WHERE payment_status = 'succeeded' DO NOTHING
	`
	res, err := r.db.ExecContext(
		ctx, query, payment.ID, payment.BookingID, payment.Amount, payment.PaymentStatus, payment.PaymentMethod, payment.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLedgerRowExists
	}
	return nil
}

func (r *paymentRepo) FindByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.PaymentRecord, error) {
	query := `
		SELECT id, booking_id, amount, payment_status, payment_method, created_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentRecord
	for rows.Next() {
		var p domain.PaymentRecord
		err := rows.Scan(
			&p.ID,
			&p.BookingID,
			&p.Amount,
			&p.PaymentStatus,
			&p.PaymentMethod,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
