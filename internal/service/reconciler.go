package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Stage names the local write that failed after a provider accepted a payment.
type Stage string

const (
	StageIntentUpdate  Stage = "intent_update"
	StageBookingUpdate Stage = "booking_update"
	StageLedgerInsert  Stage = "ledger_insert"
)

type PersistFailure struct {
	BookingID       uuid.UUID
	Stage           Stage
	PaymentIntentID string
	Provider        string
	Err             error
}

// Reconciler is told about every write that failed after the remote side
// already succeeded. The request that hit the failure still reports success.
type Reconciler interface {
	PersistFailed(ctx context.Context, failure PersistFailure)
}

type FailureCounter interface {
	IncPersistFailure(stage string)
}

// LogReconciler records failures in the log and, when counter is set, in
// metrics. The reconciliation worker picks the booking up on a later pass.
type LogReconciler struct {
	counter FailureCounter
}

func NewLogReconciler(counter FailureCounter) *LogReconciler {
	return &LogReconciler{counter: counter}
}

func (r *LogReconciler) PersistFailed(ctx context.Context, f PersistFailure) {
	slog.ErrorContext(ctx, "payment state not persisted",
		"booking_id", f.BookingID,
		"stage", string(f.Stage),
		"payment_intent_id", f.PaymentIntentID,
		"provider", f.Provider,
		"error", f.Err,
	)
	if r.counter != nil {
		r.counter.IncPersistFailure(string(f.Stage))
	}
}
