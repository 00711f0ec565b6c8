package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"booking-payments/internal/domain"

	"github.com/google/uuid"
)

// InMemoryBookingRepo implements BookingRepo with in-memory storage.
type InMemoryBookingRepo struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	ledger   *InMemoryPaymentRepo
}

// NewInMemoryBookingRepo creates a booking store. When ledger is non-nil it backs
// FindConfirmedWithoutLedger.
func NewInMemoryBookingRepo(ledger *InMemoryPaymentRepo) *InMemoryBookingRepo {
	return &InMemoryBookingRepo{
		bookings: make(map[uuid.UUID]domain.Booking),
		ledger:   ledger,
	}
}

// Save inserts or replaces a booking.
func (r *InMemoryBookingRepo) Save(b domain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	r.bookings[b.ID] = b
}

func (r *InMemoryBookingRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *InMemoryBookingRepo) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, update domain.IntentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.PaymentIntentID = update.PaymentIntentID
	b.PaymentProvider = update.PaymentProvider
	b.PaymentStatus = update.PaymentStatus
	b.Status = update.Status
	b.UpdatedAt = time.Now()
	r.bookings[id] = b
	return nil
}

func (r *InMemoryBookingRepo) MarkPaymentSucceeded(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.PaymentStatus == domain.PaymentSucceeded {
		return ErrAlreadySettled
	}
	b.PaymentStatus = domain.PaymentSucceeded
	b.Status = domain.BookingConfirmed
	b.PaymentCompletedAt = &completedAt
	b.UpdatedAt = time.Now()
	r.bookings[id] = b
	return nil
}

func (r *InMemoryBookingRepo) FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Booking, error) {
	cutoff := time.Now().Add(-olderThan)
	return r.filter(limit, func(b domain.Booking) bool {
		return b.PaymentStatus == domain.PaymentProcessing && b.UpdatedAt.Before(cutoff)
	}), nil
}

func (r *InMemoryBookingRepo) FindConfirmedWithoutLedger(ctx context.Context, limit int) ([]domain.Booking, error) {
	return r.filter(limit, func(b domain.Booking) bool {
		if b.Status != domain.BookingConfirmed || b.PaymentStatus != domain.PaymentSucceeded {
			return false
		}
		return r.ledger == nil || r.ledger.count(b.ID) == 0
	}), nil
}

func (r *InMemoryBookingRepo) filter(limit int, keep func(domain.Booking) bool) []domain.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// InMemoryPaymentRepo implements PaymentRepo with in-memory storage.
type InMemoryPaymentRepo struct {
	mu      sync.RWMutex
	records []domain.PaymentRecord
}

func NewInMemoryPaymentRepo() *InMemoryPaymentRepo {
	return &InMemoryPaymentRepo{}
}

func (r *InMemoryPaymentRepo) CreatePayment(ctx context.Context, payment *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.PaymentStatus == domain.PaymentSucceeded {
		for _, p := range r.records {
			if p.BookingID == payment.BookingID && p.PaymentStatus == domain.PaymentSucceeded {
				return ErrLedgerRowExists
			}
		}
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	r.records = append(r.records, *payment)
	return nil
}

func (r *InMemoryPaymentRepo) FindByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PaymentRecord
	for _, p := range r.records {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryPaymentRepo) count(bookingID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.records {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n
}

// InMemorySettingsRepo implements SettingsRepo with in-memory storage.
type InMemorySettingsRepo struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	reads  int
}

func NewInMemorySettingsRepo() *InMemorySettingsRepo {
	return &InMemorySettingsRepo{values: make(map[string]json.RawMessage)}
}

func (r *InMemorySettingsRepo) GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads++
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := r.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r *InMemorySettingsRepo) Upsert(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = raw
	return nil
}

// Reads reports how many GetMany calls have been served.
func (r *InMemorySettingsRepo) Reads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reads
}
