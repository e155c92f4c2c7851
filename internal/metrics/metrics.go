// Package metrics exposes the submitter's Prometheus instrumentation
// using an explicit registry, the same construction style as the
// teacher's health-logging component (prometheus.NewRegistry plus
// MustRegister rather than the default global registry).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	BatchTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitter_batch_transitions_total",
		Help: "Count of batch lifecycle transitions by from/to state.",
	}, []string{"from", "to"})

	BatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitter_batch_failures_total",
		Help: "Count of per-attempt batch processing failures, labeled by batch id.",
	}, []string{"batch_id"})

	BatchesFailedPermanentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitter_batches_failed_permanent_total",
		Help: "Count of batches that exhausted their retry budget and moved to Failed.",
	})

	BatchesCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitter_batches_completed_total",
		Help: "Count of batches that reached Confirmed.",
	})

	BatchRevertedToSubmittingTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitter_batch_reverted_to_submitting_total",
		Help: "Count of Submitted batches regressed to Submitting due to a missing tx hash.",
	})

	ProveDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submitter_prove_duration_seconds",
		Help:    "Time spent in the Proving state per successful attempt.",
		Buckets: prometheus.DefBuckets,
	})

	SubmitTxDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submitter_submit_tx_duration_seconds",
		Help:    "Time spent in the Submitting state per successful attempt.",
		Buckets: prometheus.DefBuckets,
	})

	BatchE2EDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submitter_batch_e2e_duration_seconds",
		Help:    "Wall-clock time from batch creation to Confirmed.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	ProverCircuitOpenHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitter_prover_circuit_open_hits_total",
		Help: "Count of prover calls short-circuited because the breaker was open.",
	})

	ProverCircuitTrippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitter_prover_circuit_tripped_total",
		Help: "Count of times the prover circuit breaker tripped from Closed/HalfOpen to Open.",
	})

	ProverRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitter_prover_requests_total",
		Help: "Count of prover HTTP requests by outcome.",
	}, []string{"outcome"})

	ProverRequestDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submitter_prover_request_duration_seconds",
		Help:    "Latency of prover HTTP round trips, including retries.",
		Buckets: prometheus.DefBuckets,
	})

	TxSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitter_tx_submitted_total",
		Help: "Count of on-chain submissions by DA mode.",
	}, []string{"da_mode"})
)

func init() {
	Registry.MustRegister(
		BatchTransitionsTotal,
		BatchFailuresTotal,
		BatchesFailedPermanentTotal,
		BatchesCompletedTotal,
		BatchRevertedToSubmittingTotal,
		ProveDurationSeconds,
		SubmitTxDurationSeconds,
		BatchE2EDurationSeconds,
		ProverCircuitOpenHitsTotal,
		ProverCircuitTrippedTotal,
		ProverRequestsTotal,
		ProverRequestDurationSeconds,
		TxSubmittedTotal,
	)
}

// RecordTransition increments the from/to transition counter.
func RecordTransition(from, to string) {
	BatchTransitionsTotal.WithLabelValues(from, to).Inc()
}

// Handler returns the HTTP handler serving this registry's metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
