// Package metrics holds the Prometheus collectors for provider calls,
// post-payment persistence and the reconciliation worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricProviderCalls         = "payment_provider_calls_total"
	MetricProviderCallDuration  = "payment_provider_call_duration_seconds"
	MetricPersistFailures       = "payment_persist_failures_total"
	MetricReconcileRuns         = "payment_reconcile_runs_total"
	MetricReconcileSettled      = "payment_reconcile_settled_total"
	MetricReconcileLedgerFilled = "payment_reconcile_ledger_backfilled_total"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
)

// Metrics is safe for concurrent use.
type Metrics struct {
	providerCalls        *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	persistFailures      *prometheus.CounterVec
	reconcileRuns        *prometheus.CounterVec
	reconcileSettled     prometheus.Counter
	reconcileBackfilled  prometheus.Counter
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricProviderCalls,
				Help: "Payment provider calls by provider, operation and outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		providerCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricProviderCallDuration,
				Help:    "Payment provider call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider", "operation"},
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPersistFailures,
				Help: "Local writes that failed after the provider accepted the payment",
			},
			[]string{"stage"},
		),
		reconcileRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReconcileRuns,
				Help: "Reconciliation passes by result",
			},
			[]string{"result"},
		),
		reconcileSettled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricReconcileSettled,
				Help: "Bookings confirmed by the reconciliation worker",
			},
		),
		reconcileBackfilled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricReconcileLedgerFilled,
				Help: "Missing ledger rows inserted by the reconciliation worker",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.providerCalls,
		m.providerCallDuration,
		m.persistFailures,
		m.reconcileRuns,
		m.reconcileSettled,
		m.reconcileBackfilled,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveProviderCall satisfies payment.Observer.
func (m *Metrics) ObserveProviderCall(provider, operation, outcome string, elapsed time.Duration) {
	m.providerCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.providerCallDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) IncPersistFailure(stage string) {
	m.persistFailures.WithLabelValues(stage).Inc()
}

// ObserveReconcileRun records one worker pass. result is "ok" or "error".
func (m *Metrics) ObserveReconcileRun(result string, settled, backfilled int) {
	m.reconcileRuns.WithLabelValues(result).Inc()
	m.reconcileSettled.Add(float64(settled))
	m.reconcileBackfilled.Add(float64(backfilled))
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}
