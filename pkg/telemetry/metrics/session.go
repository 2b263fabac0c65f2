package metrics

import (
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks streaming sessions.
//
// Metrics:
//   - relay_sessions_active: Sessions currently open, by provider
//   - relay_sessions_total: Finished sessions by provider, model, state, reason
//   - relay_session_chunks_total: Chunks relayed
//   - relay_session_bytes_total: Chunk content bytes relayed
//   - relay_session_duration_seconds: Session lifetime
//   - relay_session_first_chunk_seconds: Time from open to first chunk
type SessionMetrics struct {
	active     *prometheus.GaugeVec
	total      *prometheus.CounterVec
	chunks     *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	firstChunk *prometheus.HistogramVec
}

// NewSessionMetrics creates and registers session metrics.
func NewSessionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "sessions_active",
				Help:      "Number of streaming sessions currently open",
			},
			[]string{"provider"},
		),

		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished sessions by terminal state",
			},
			[]string{"provider", "model", "state", "reason"},
		),

		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "session_chunks_total",
				Help:      "Total number of chunks relayed",
			},
			[]string{"provider", "model"},
		),

		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "session_bytes_total",
				Help:      "Total chunk content bytes relayed",
			},
			[]string{"provider", "model"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "session_duration_seconds",
				Help:      "Session lifetime in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"provider", "state"},
		),

		firstChunk: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "session_first_chunk_seconds",
				Help:      "Time from session open to the first chunk in seconds",
				Buckets:   cfg.FirstChunkBuckets,
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		sm.active,
		sm.total,
		sm.chunks,
		sm.bytes,
		sm.duration,
		sm.firstChunk,
	)

	return sm
}

// Record records a finished session.
func (sm *SessionMetrics) Record(summary session.Summary, model string) {
	provider := summary.Provider
	state := summary.State.String()

	sm.active.WithLabelValues(provider).Dec()
	sm.total.WithLabelValues(provider, model, state, summary.Reason.String()).Inc()
	sm.duration.WithLabelValues(provider, state).Observe(summary.Duration().Seconds())

	if summary.Chunks > 0 {
		sm.chunks.WithLabelValues(provider, model).Add(float64(summary.Chunks))
		sm.bytes.WithLabelValues(provider, model).Add(float64(summary.Bytes))
	}
	if ttfc := summary.TimeToFirstChunk(); ttfc > 0 {
		sm.firstChunk.WithLabelValues(provider).Observe(ttfc.Seconds())
	}
}
