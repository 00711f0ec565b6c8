package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"booking-payments/internal/domain"
	"booking-payments/internal/infrastructure/payment"
	"booking-payments/internal/repo"
	"booking-payments/internal/service"
)

type ReconciliationConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

type RunObserver interface {
	ObserveReconcileRun(result string, settled, backfilled int)
}

// ReconciliationWorker repairs bookings left behind when a local write failed
// after the provider accepted a payment.
type ReconciliationWorker struct {
	bookingRepo repo.BookingRepo
	loader      service.ConfigLoader
	registry    service.ProviderRegistry
	settler     *service.Settler
	cfg         ReconciliationConfig
	observer    RunObserver
}

func NewReconciliationWorker(
	bookingRepo repo.BookingRepo,
	loader service.ConfigLoader,
	registry service.ProviderRegistry,
	settler *service.Settler,
	cfg ReconciliationConfig,
	observer RunObserver,
) *ReconciliationWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &ReconciliationWorker{
		bookingRepo: bookingRepo,
		loader:      loader,
		registry:    registry,
		settler:     settler,
		cfg:         cfg,
		observer:    observer,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reconciliation worker started", "interval", rw.cfg.Interval, "stale_after", rw.cfg.StaleAfter)

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if _, err := rw.RunOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reconciliation failed", "error", err)
			}
		}
	}
}

type RunStats struct {
	Checked    int
	Settled    int
	Backfilled int
	Skipped    int
}

// RunOnce performs a single pass. Errors for one booking are logged and do
// not stop the pass; only a failed listing or config load is returned.
func (rw *ReconciliationWorker) RunOnce(ctx context.Context) (stats RunStats, err error) {
	defer func() {
		if rw.observer == nil {
			return
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		rw.observer.ObserveReconcileRun(result, stats.Settled, stats.Backfilled)
	}()

	stuck, err := rw.bookingRepo.FindStuckProcessing(ctx, rw.cfg.StaleAfter, rw.cfg.BatchSize)
	if err != nil {
		return stats, err
	}
	if len(stuck) > 0 {
		cfg, err := rw.loader.Load(ctx)
		if err != nil {
			return stats, err
		}
		slog.InfoContext(ctx, "found stuck bookings", "count", len(stuck))
		for i := range stuck {
			rw.resolve(ctx, cfg, &stuck[i], &stats)
		}
	}

	unlogged, err := rw.bookingRepo.FindConfirmedWithoutLedger(ctx, rw.cfg.BatchSize)
	if err != nil {
		return stats, err
	}
	for i := range unlogged {
		b := &unlogged[i]
		if err := rw.settler.RecordLedger(ctx, b, b.PaymentProvider); err != nil {
			if errors.Is(err, repo.ErrLedgerRowExists) {
				slog.DebugContext(ctx, "ledger row written concurrently", "booking_id", b.ID)
			}
			continue
		}
		stats.Backfilled++
		slog.InfoContext(ctx, "ledger row backfilled", "booking_id", b.ID, "provider", b.PaymentProvider)
	}
	return stats, nil
}

func (rw *ReconciliationWorker) resolve(ctx context.Context, cfg *payment.Config, b *domain.Booking, stats *RunStats) {
	stats.Checked++
	log := slog.With("booking_id", b.ID, "provider", b.PaymentProvider, "payment_intent_id", b.PaymentIntentID)

	if b.PaymentIntentID == "" || b.PaymentProvider == "" {
		stats.Skipped++
		log.WarnContext(ctx, "stuck booking has no payment intent")
		return
	}
	provider, err := rw.registry.ProviderByName(cfg, b.PaymentProvider)
	if err != nil {
		stats.Skipped++
		log.WarnContext(ctx, "cannot resolve provider for stuck booking", "error", err)
		return
	}
	// Manual providers have no remote status to poll.
	if provider.RequiresManualReview() {
		stats.Skipped++
		return
	}

	intent, err := provider.GetPaymentStatus(ctx, b.PaymentIntentID)
	if err != nil {
		stats.Skipped++
		log.WarnContext(ctx, "failed to fetch payment status", "error", err)
		return
	}
	if intent.Status != domain.IntentSucceeded {
		log.InfoContext(ctx, "payment still open at provider", "status", string(intent.Status))
		return
	}

	if err := rw.settler.Settle(ctx, b, strings.ToLower(provider.Name())); err != nil {
		if errors.Is(err, repo.ErrAlreadySettled) {
			stats.Skipped++
			log.InfoContext(ctx, "booking settled concurrently")
		}
		return
	}
	stats.Settled++
	log.InfoContext(ctx, "stuck booking confirmed from provider status")
}
