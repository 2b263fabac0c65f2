package metrics

import (
	"strconv"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks client requests at the transport level.
//
// Metrics:
//   - relay_requests_total: Completion requests by transport and status code
//   - relay_requests_rejected_total: Requests refused before a session opened
//   - relay_journal_dropped_total: Journal entries dropped on a full buffer
type RequestMetrics struct {
	requestsTotal  *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	journalDropped prometheus.Counter
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of completion requests by transport and status",
			},
			[]string{"transport", "status"},
		),

		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_rejected_total",
				Help:      "Total number of requests rejected before streaming",
			},
			[]string{"kind"},
		),

		journalDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "journal_dropped_total",
				Help:      "Total number of journal entries dropped because the buffer was full",
			},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.rejectedTotal, rm.journalDropped)
	return rm
}

// RecordRequest records a finished request.
func (rm *RequestMetrics) RecordRequest(transport string, status int) {
	rm.requestsTotal.WithLabelValues(transport, strconv.Itoa(status)).Inc()
}

// RecordRejected records a rejected request.
func (rm *RequestMetrics) RecordRejected(kind string) {
	rm.rejectedTotal.WithLabelValues(kind).Inc()
}
