package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"mercator-hq/relay/pkg/telemetry/logging"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		want      string
		generated bool
	}{
		{name: "no header", generated: true},
		{name: "client id kept", header: "req-42", want: "req-42"},
		{name: "id at limit kept", header: strings.Repeat("x", maxRequestIDLength), want: strings.Repeat("x", maxRequestIDLength)},
		{name: "oversized id replaced", header: strings.Repeat("x", maxRequestIDLength+1), generated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inCtx, inLogging string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inCtx = GetRequestID(r.Context())
				inLogging = logging.RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/completions", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.generated {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("%s = %q, want a UUID", RequestIDHeader, got)
				}
			} else if got != tt.want {
				t.Errorf("%s = %q, want %q", RequestIDHeader, got, tt.want)
			}
			if inCtx != got {
				t.Errorf("GetRequestID() = %q, want %q", inCtx, got)
			}
			if inLogging != got {
				t.Errorf("logging.RequestID() = %q, want %q", inLogging, got)
			}
		})
	}
}

func TestRequestIDMiddleware_Unique(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	seen := make(map[string]bool)
	for range 50 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/completions/probe", nil))
		id := rec.Header().Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
