package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func withTraceContextPropagator(t *testing.T) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func TestHTTPMiddleware(t *testing.T) {
	withTraceContextPropagator(t)

	var seen string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	t.Run("with traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/completions", nil)
		req.Header.Set("traceparent", testTraceParent)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("handler trace ID = %q", seen)
		}
		if got := rec.Header().Get(TraceIDHeader); got != seen {
			t.Errorf("X-Trace-ID = %q, want %q", got, seen)
		}
	})

	t.Run("without traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/completions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != "" {
			t.Errorf("handler trace ID = %q, want empty", seen)
		}
		if got := rec.Header().Get(TraceIDHeader); got != "" {
			t.Errorf("X-Trace-ID = %q, want empty", got)
		}
	})
}
