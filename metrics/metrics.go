// Package metrics exposes Prometheus collectors for the pricing and credit core
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Price calculations partitioned by product type and outcome
	priceCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Total number of price calculations performed",
		},
		[]string{"product_type", "outcome"},
	)

	// Calculation duration in seconds partitioned by product type
	priceCalculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_calculation_duration_seconds",
			Help:    "Price calculation latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"product_type"},
	)

	// Calculations flagged for fraud monitoring, partitioned by reason
	suspiciousCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_suspicious_calculations_total",
			Help: "Total number of price calculations flagged as suspicious",
		},
		[]string{"reason"},
	)

	// Ledger mutations partitioned by operation and outcome
	ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ledger_operations_total",
			Help: "Total number of credit ledger operations",
		},
		[]string{"operation", "outcome"},
	)

	// Debits rejected for insufficient credit
	insufficientCreditTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_insufficient_rejections_total",
			Help: "Total number of debits rejected for insufficient credit",
		},
	)

	// In-flight ledger mutations
	ledgerInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "credit_ledger_inflight_operations",
			Help: "Number of ledger mutations currently being applied",
		},
	)
)

// ObserveCalculation records one price calculation attempt.
func ObserveCalculation(productType, outcome string, duration time.Duration) {
	priceCalculationsTotal.With(prometheus.Labels{
		"product_type": productType,
		"outcome":      outcome,
	}).Inc()
	priceCalculationDuration.With(prometheus.Labels{
		"product_type": productType,
	}).Observe(duration.Seconds())
}

// ObserveSuspicious records one flagged calculation.
func ObserveSuspicious(reason string) {
	suspiciousCalculationsTotal.With(prometheus.Labels{"reason": reason}).Inc()
}

// ObserveLedgerOperation records one ledger mutation attempt.
func ObserveLedgerOperation(operation, outcome string) {
	ledgerOperationsTotal.With(prometheus.Labels{
		"operation": operation,
		"outcome":   outcome,
	}).Inc()
}

// ObserveInsufficientCredit records one rejected debit.
func ObserveInsufficientCredit() {
	insufficientCreditTotal.Inc()
}

// LedgerInFlightInc marks a ledger mutation as started.
func LedgerInFlightInc() {
	ledgerInFlight.Inc()
}

// LedgerInFlightDec marks a ledger mutation as finished.
func LedgerInFlightDec() {
	ledgerInFlight.Dec()
}
