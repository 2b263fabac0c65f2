package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
)

// maxModelLabels caps the distinct provider/model pairs used as label values.
const maxModelLabels = 1000

// otherModel replaces model names past the cap.
const otherModel = "other"

// Collector owns the relay metrics and the registry they live in. Sessions
// report to it through session.Observer.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	sessionMetrics *SessionMetrics
	requestMetrics *RequestMetrics
	upstream       *upstreamMetrics
	models         *modelLabels
}

var _ session.Observer = (*Collector)(nil)

// NewCollector registers the relay metrics on registry, or on a new registry
// when it is nil. Zero namespace and bucket settings take the defaults.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}
	if len(cfg.FirstChunkBuckets) == 0 {
		cfg.FirstChunkBuckets = config.DefaultFirstChunkBuckets
	}

	return &Collector{
		enabled:        cfg.Enabled,
		registry:       registry,
		sessionMetrics: NewSessionMetrics(cfg, registry),
		requestMetrics: NewRequestMetrics(cfg, registry),
		upstream:       newUpstreamMetrics(cfg, registry),
		models:         newModelLabels(maxModelLabels),
	}
}

// SessionStarted implements session.Observer.
func (c *Collector) SessionStarted(info session.Info) {
	if c.enabled {
		c.sessionMetrics.active.WithLabelValues(info.Provider).Inc()
	}
}

// SessionEnded implements session.Observer.
func (c *Collector) SessionEnded(summary session.Summary) {
	if !c.enabled {
		return
	}
	c.sessionMetrics.Record(summary, c.models.label(summary.Provider, summary.Model))
	if summary.State == session.Failed {
		c.upstream.failed(summary.Provider, providers.Kind(summary.Err))
	}
}

// UpdateProviderHealth reports the latest health check result of provider.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if c.enabled {
		c.upstream.setHealth(provider, healthy)
	}
}

// RecordRequest counts a finished completion request.
func (c *Collector) RecordRequest(transport string, status int) {
	if c.enabled {
		c.requestMetrics.RecordRequest(transport, status)
	}
}

// RecordRejected counts a request refused before a session opened.
func (c *Collector) RecordRejected(kind string) {
	if c.enabled {
		c.requestMetrics.RecordRejected(kind)
	}
}

// RecordJournalDrop counts a journal record lost to a full buffer.
func (c *Collector) RecordJournalDrop() {
	if c.enabled {
		c.requestMetrics.journalDropped.Inc()
	}
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the exposition format. Scrapes of the
// handler itself are counted on the same registry.
func (c *Collector) Handler() http.Handler {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry:          c.registry,
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
	return promhttp.InstrumentMetricHandler(c.registry, h)
}

// modelLabels hands out model label values, switching to otherModel once
// limit pairs have been seen. Pairs already seen keep their own label.
type modelLabels struct {
	limit int

	mu   sync.Mutex
	seen map[string]struct{}
}

func newModelLabels(limit int) *modelLabels {
	return &modelLabels{limit: limit, seen: make(map[string]struct{})}
}

func (m *modelLabels) label(provider, model string) string {
	key := provider + "\x00" + model

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return model
	}
	if len(m.seen) >= m.limit {
		return otherModel
	}
	m.seen[key] = struct{}{}
	return model
}
