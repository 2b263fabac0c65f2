package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/relay/pkg/config"
)

// upstreamMetrics describes the configured providers rather than the
// sessions running on them.
//
//   - relay_provider_healthy: 1 while the last health check passed
//   - relay_provider_health_changes_total: healthy/unhealthy flips
//   - relay_provider_failures_total: failed sessions by error kind
type upstreamMetrics struct {
	healthy  *prometheus.GaugeVec
	changes  *prometheus.CounterVec
	failures *prometheus.CounterVec

	mu   sync.Mutex
	last map[string]bool
}

func newUpstreamMetrics(cfg *config.MetricsConfig, reg prometheus.Registerer) *upstreamMetrics {
	um := &upstreamMetrics{
		healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_healthy",
			Help:      "Whether the last health check of the provider passed",
		}, []string{"provider"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_health_changes_total",
			Help:      "Number of times a provider went healthy or unhealthy",
		}, []string{"provider", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_failures_total",
			Help:      "Sessions that failed on the provider, by error kind",
		}, []string{"provider", "kind"}),
		last: make(map[string]bool),
	}
	reg.MustRegister(um.healthy, um.changes, um.failures)
	return um
}

// setHealth stores the gauge and counts a change when the state differs
// from the previous report. The first report is not a change.
func (um *upstreamMetrics) setHealth(provider string, healthy bool) {
	um.mu.Lock()
	prev, seen := um.last[provider]
	um.last[provider] = healthy
	um.mu.Unlock()

	if seen && prev != healthy {
		to := "unhealthy"
		if healthy {
			to = "healthy"
		}
		um.changes.WithLabelValues(provider, to).Inc()
	}

	var v float64
	if healthy {
		v = 1
	}
	um.healthy.WithLabelValues(provider).Set(v)
}

func (um *upstreamMetrics) failed(provider, kind string) {
	um.failures.WithLabelValues(provider, kind).Inc()
}
