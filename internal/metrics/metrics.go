// Package metrics declares the Prometheus collectors the service exposes
// at /metrics. The teacher wires metrics only at the HTTP edge; this
// expansion also instruments the transfer executor itself so outcome
// counts survive callers that invoke it outside the HTTP handler.
//
// Every constructor takes a prometheus.Registerer rather than registering
// against the global default registry, so tests can pass a fresh
// prometheus.NewRegistry() per case instead of colliding on repeated
// registration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP holds the request-edge collectors.
type HTTP struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTP registers and returns the HTTP collectors against reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total HTTP requests processed, labeled by status code.",
		}, []string{"method", "endpoint", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Latency distribution of HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "endpoint"}),
	}
}

// Executor holds the transfer-executor collectors: one counter per terminal
// outcome/reason and a histogram per balance-mutation step, so the
// concurrency-sensitive §4.5 path can be watched independently of HTTP
// latency.
type Executor struct {
	OutcomesTotal           *prometheus.CounterVec
	BalanceMutationDuration *prometheus.HistogramVec
}

// NewExecutor registers and returns the executor collectors against reg.
func NewExecutor(reg prometheus.Registerer) *Executor {
	f := promauto.With(reg)
	return &Executor{
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_outcomes_total",
			Help: "Total transfer executions, labeled by terminal outcome and reason.",
		}, []string{"outcome", "reason"}),

		BalanceMutationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_balance_mutation_duration_seconds",
			Help:    "Latency of the conditional debit/credit UPDATE statements.",
			Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"step"}),
	}
}
