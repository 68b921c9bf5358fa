package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// OrderMetrics records order lifecycle activity.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	completion  *prometheus.CounterVec
	txDuration  *prometheus.HistogramVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by source, target and result.",
	}, []string{"from", "to", "result"})
	completion := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_completion_failures_total",
		Help: "Order completions that failed the stock check.",
	}, []string{"reason"})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_transaction_duration_seconds",
		Help:    "Duration of order store transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, completion, txDuration)
	return &OrderMetrics{
		transitions: transitions,
		completion:  completion,
		txDuration:  txDuration,
	}
}

// ObserveTransition counts one attempted status change.
func (m *OrderMetrics) ObserveTransition(from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// IncCompletionFailure counts a completion rejected by the stock check.
func (m *OrderMetrics) IncCompletionFailure(reason string) {
	if m == nil || m.completion == nil {
		return
	}
	m.completion.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveTransaction records how long a store transaction took.
func (m *OrderMetrics) ObserveTransaction(operation string, duration time.Duration) {
	if m == nil || m.txDuration == nil {
		return
	}
	m.txDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
