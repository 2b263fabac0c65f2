package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/stub"
	"mercator-hq/relay/pkg/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:           true,
		Namespace:         "test",
		DurationBuckets:   []float64{0.1, 1, 10},
		FirstChunkBuckets: []float64{0.01, 0.1, 1},
	}
}

func summary(state session.State, reason session.Reason, err error, chunks int) session.Summary {
	start := time.Now().Add(-time.Second)
	s := session.Summary{
		Info: session.Info{
			ID:        "s-1",
			Provider:  "test-echo",
			Model:     "echo-1",
			StartedAt: start,
		},
		State:   state,
		Reason:  reason,
		Err:     err,
		Chunks:  chunks,
		Bytes:   int64(chunks * 2),
		EndedAt: time.Now(),
	}
	if chunks > 0 {
		s.FirstChunkAt = start.Add(50 * time.Millisecond)
	}
	return s
}

func TestNewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	c := NewCollector(cfg, nil)

	if c.Registry() == nil {
		t.Fatal("Registry() = nil")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
	}
	if len(cfg.DurationBuckets) == 0 || len(cfg.FirstChunkBuckets) == 0 {
		t.Error("bucket defaults not applied")
	}
}

func TestCollector_SessionLifecycle(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	sm := c.sessionMetrics

	c.SessionStarted(session.Info{Provider: "test-echo"})
	c.SessionStarted(session.Info{Provider: "test-echo"})
	if got := testutil.ToFloat64(sm.active.WithLabelValues("test-echo")); got != 2 {
		t.Errorf("active = %v, want 2", got)
	}

	c.SessionEnded(summary(session.Completed, session.ReasonNone, nil, 3))
	c.SessionEnded(summary(session.Cancelled, session.ReasonClientGone, nil, 1))

	if got := testutil.ToFloat64(sm.active.WithLabelValues("test-echo")); got != 0 {
		t.Errorf("active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(sm.total.WithLabelValues("test-echo", "echo-1", "completed", "")); got != 1 {
		t.Errorf("completed sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.total.WithLabelValues("test-echo", "echo-1", "cancelled", "client_gone")); got != 1 {
		t.Errorf("cancelled sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.chunks.WithLabelValues("test-echo", "echo-1")); got != 4 {
		t.Errorf("chunks = %v, want 4", got)
	}
	if got := testutil.ToFloat64(sm.bytes.WithLabelValues("test-echo", "echo-1")); got != 8 {
		t.Errorf("bytes = %v, want 8", got)
	}
	if got := testutil.CollectAndCount(sm.firstChunk); got != 1 {
		t.Errorf("first chunk series = %d, want 1", got)
	}
}

func TestCollector_FailedSessionRecordsErrorKind(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"stream", &providers.StreamError{Provider: "p", Cause: io.ErrUnexpectedEOF}, providers.KindUpstreamStream},
		{"unavailable", &providers.UnavailableError{Provider: "p", StatusCode: 503}, providers.KindUpstreamUnavailable},
		{"other", errors.New("boom"), providers.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.SessionStarted(session.Info{Provider: "test-echo"})
			c.SessionEnded(summary(session.Failed, session.ReasonNone, tt.err, 0))

			counter := c.upstream.failures.WithLabelValues("test-echo", tt.kind)
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Errorf("provider_failures_total{kind=%q} = %v, want 1", tt.kind, got)
			}
		})
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.SessionStarted(session.Info{Provider: "p"})
	c.SessionEnded(summary(session.Completed, session.ReasonNone, nil, 1))
	c.UpdateProviderHealth("p", true)
	c.RecordRequest("http", 200)

	if got := testutil.CollectAndCount(c.sessionMetrics.total); got != 0 {
		t.Errorf("sessions_total series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(c.requestMetrics.requestsTotal); got != 0 {
		t.Errorf("requests_total series = %d, want 0", got)
	}
}

func TestCollector_ProviderHealth(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.UpdateProviderHealth("openai", true)
	c.UpdateProviderHealth("gemini", false)

	if got := testutil.ToFloat64(c.upstream.healthy.WithLabelValues("openai")); got != 1 {
		t.Errorf("openai health = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstream.healthy.WithLabelValues("gemini")); got != 0 {
		t.Errorf("gemini health = %v, want 0", got)
	}
}

func TestCollector_RequestsAndRejections(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordRequest("http", 200)
	c.RecordRequest("http", 200)
	c.RecordRequest("ws", 101)
	c.RecordRejected(providers.KindUnknownProvider)
	c.RecordJournalDrop()

	if got := testutil.ToFloat64(c.requestMetrics.requestsTotal.WithLabelValues("http", "200")); got != 2 {
		t.Errorf("http 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requestMetrics.requestsTotal.WithLabelValues("ws", "101")); got != 1 {
		t.Errorf("ws 101 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requestMetrics.rejectedTotal.WithLabelValues(providers.KindUnknownProvider)); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requestMetrics.journalDropped); got != 1 {
		t.Errorf("journal dropped = %v, want 1", got)
	}
}

func TestCollector_ModelCardinality(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.models = newModelLabels(1)

	first := summary(session.Completed, session.ReasonNone, nil, 1)
	second := first
	second.Model = "echo-2"

	for _, s := range []session.Summary{first, second} {
		c.SessionStarted(s.Info)
		c.SessionEnded(s)
	}

	if got := testutil.ToFloat64(c.sessionMetrics.total.WithLabelValues("test-echo", "other", "completed", "")); got != 1 {
		t.Errorf("sessions under model=other = %v, want 1", got)
	}
}

func TestCollector_ObservesRealSession(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	adapter, err := stub.New(providers.ProviderConfig{Name: "test-echo", Type: stub.TypeEcho})
	if err != nil {
		t.Fatal(err)
	}

	sess, err := session.Open(context.Background(), adapter, session.Request{
		Provider: "test-echo",
		Model:    "echo-1",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	}, session.Options{Observer: c})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for {
		if _, err := sess.Next(); err != nil {
			break
		}
	}
	sess.Close()

	if got := testutil.ToFloat64(c.sessionMetrics.total.WithLabelValues("test-echo", "echo-1", "completed", "")); got != 1 {
		t.Errorf("completed sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessionMetrics.chunks.WithLabelValues("test-echo", "echo-1")); got != 3 {
		t.Errorf("chunks = %v, want 3", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.RecordRequest("http", 200)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_requests_total") {
		t.Errorf("body missing test_requests_total:\n%s", rec.Body.String())
	}
}

func TestCollector_ProviderHealthChanges(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	for _, healthy := range []bool{true, true, false, false, true} {
		c.UpdateProviderHealth("openai", healthy)
	}

	tests := []struct {
		to   string
		want float64
	}{
		{"unhealthy", 1},
		{"healthy", 1},
	}
	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			if got := testutil.ToFloat64(c.upstream.changes.WithLabelValues("openai", tt.to)); got != tt.want {
				t.Errorf("health changes to %s = %v, want %v", tt.to, got, tt.want)
			}
		})
	}
}

func TestModelLabels(t *testing.T) {
	m := newModelLabels(2)

	tests := []struct {
		provider, model string
		want            string
	}{
		{"a", "m1", "m1"},
		{"b", "m1", "m1"},
		{"a", "m2", otherModel},
		{"a", "m1", "m1"},
	}
	for _, tt := range tests {
		if got := m.label(tt.provider, tt.model); got != tt.want {
			t.Errorf("label(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}
