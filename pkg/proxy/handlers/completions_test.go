package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/stub"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/registry"
)

type fakeMetrics struct {
	mu       sync.Mutex
	requests []string
	rejected []string
}

func (m *fakeMetrics) RecordRequest(transport string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, transport+":"+http.StatusText(status))
}

func (m *fakeMetrics) RecordRejected(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, kind)
}

type fixture struct {
	echo    *stub.Adapter
	failMid *stub.Adapter
	slow    *stub.Adapter
	metrics *fakeMetrics
	handler *CompletionHandler
}

func newStub(t *testing.T, name, typ string, opts providers.StubOptions) *stub.Adapter {
	t.Helper()
	a, err := stub.New(providers.ProviderConfig{Name: name, Type: typ, Stub: opts})
	if err != nil {
		t.Fatalf("stub.New(%s) error = %v", name, err)
	}
	return a
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		echo:    newStub(t, "test-echo", stub.TypeEcho, providers.StubOptions{}),
		failMid: newStub(t, "test-fail-mid", stub.TypeFail, providers.StubOptions{}),
		slow:    newStub(t, "test-slow", stub.TypeEcho, providers.StubOptions{OpenDelay: time.Second}),
		metrics: &fakeMetrics{},
	}

	reg, err := registry.FromAdapters("test-echo", f.echo, f.failMid, f.slow)
	if err != nil {
		t.Fatalf("FromAdapters() error = %v", err)
	}

	opts := Options{
		Registry:     reg,
		Metrics:      f.metrics,
		OpenTimeout:  50 * time.Millisecond,
		IdleTimeout:  time.Second,
		WriteTimeout: time.Second,
		ResolveModel: func(provider, requested string) string {
			if requested == "" {
				return "stub-model"
			}
			return requested
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.handler = NewCompletionHandler(opts)
	return f
}

func decodeError(t *testing.T, body string) types.ErrorDetail {
	t.Helper()
	var resp types.ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("error body %q is not JSON: %v", body, err)
	}
	return resp.Error
}

func TestCompletions_Stream(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		wantBody string
	}{
		{
			name:     "echo with message array",
			target:   "/completions?provider=test-echo",
			body:     `[{"role":"user","content":"hi"}]`,
			wantBody: "He\nllo\n!\n",
		},
		{
			name:     "echo with request object",
			target:   "/completions",
			body:     `{"provider":"test-echo","model":"m","messages":[{"role":"user","content":"hi"}]}`,
			wantBody: "He\nllo\n!\n",
		},
		{
			name:     "default provider",
			target:   "/completions",
			body:     `[{"role":"user","content":"hi"}]`,
			wantBody: "He\nllo\n!\n",
		},
		{
			name:     "failure after first chunk ends cleanly",
			target:   "/completions?provider=test-fail-mid",
			body:     `[{"role":"user","content":"hi"}]`,
			wantBody: "He\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if f.echo.Active() != 0 || f.failMid.Active() != 0 {
				t.Errorf("upstream streams left open: echo=%d fail=%d", f.echo.Active(), f.failMid.Active())
			}
		})
	}
}

func TestCompletions_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		maxBody    int64
		wantStatus int
		wantType   string
	}{
		{
			name:       "unknown provider",
			method:     http.MethodPost,
			target:     "/completions?provider=nope",
			body:       `[{"role":"user","content":"hi"}]`,
			wantStatus: http.StatusBadRequest,
			wantType:   providers.KindUnknownProvider,
		},
		{
			name:       "empty messages",
			method:     http.MethodPost,
			target:     "/completions?provider=test-echo",
			body:       `[]`,
			wantStatus: http.StatusBadRequest,
			wantType:   providers.KindInvalidRequest,
		},
		{
			name:       "invalid role",
			method:     http.MethodPost,
			target:     "/completions?provider=test-echo",
			body:       `[{"role":"robot","content":"hi"}]`,
			wantStatus: http.StatusBadRequest,
			wantType:   providers.KindInvalidRequest,
		},
		{
			name:       "malformed JSON",
			method:     http.MethodPost,
			target:     "/completions",
			body:       `{"messages":`,
			wantStatus: http.StatusBadRequest,
			wantType:   providers.KindInvalidRequest,
		},
		{
			name:       "body too large",
			method:     http.MethodPost,
			target:     "/completions",
			body:       `[{"role":"user","content":"` + strings.Repeat("x", 256) + `"}]`,
			maxBody:    64,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   types.ErrorTypeRequestTooLarge,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			target:     "/completions",
			wantStatus: http.StatusMethodNotAllowed,
			wantType:   types.ErrorTypeMethodNotAllowed,
		},
		{
			name:       "open deadline",
			method:     http.MethodPost,
			target:     "/completions?provider=test-slow",
			body:       `[{"role":"user","content":"hi"}]`,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   providers.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *Options) { o.MaxBodyBytes = tt.maxBody })

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			middleware.RequestIDMiddleware(f.handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			detail := decodeError(t, w.Body.String())
			if detail.Type != tt.wantType {
				t.Errorf("type = %q, want %q", detail.Type, tt.wantType)
			}
			if detail.RequestID == "" || detail.RequestID != w.Header().Get(middleware.RequestIDHeader) {
				t.Errorf("request_id = %q, want %q", detail.RequestID, w.Header().Get(middleware.RequestIDHeader))
			}
			if tt.wantType != providers.KindTimeout {
				if n := f.echo.Opens() + f.failMid.Opens() + f.slow.Opens(); n != 0 {
					t.Errorf("upstream opens = %d, want 0", n)
				}
			}
		})
	}
}

func TestCompletions_Metrics(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/completions?provider=test-echo", "/completions?provider=nope"} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		f.handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	wantRequests := []string{"http:OK", "http:Bad Request"}
	if strings.Join(f.metrics.requests, ",") != strings.Join(wantRequests, ",") {
		t.Errorf("requests = %v, want %v", f.metrics.requests, wantRequests)
	}
	if len(f.metrics.rejected) != 1 || f.metrics.rejected[0] != providers.KindUnknownProvider {
		t.Errorf("rejected = %v, want [%s]", f.metrics.rejected, providers.KindUnknownProvider)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "echo",
			method:     http.MethodGet,
			target:     "/completions/probe?provider=test-echo&q=hello",
			wantStatus: http.StatusOK,
			wantBody:   "He\nllo\n!\n",
		},
		{
			name:       "fail mid-stream",
			method:     http.MethodGet,
			target:     "/completions/probe?provider=test-fail-mid&q=hello",
			wantStatus: http.StatusOK,
			wantBody:   "He\n",
		},
		{
			name:       "missing q",
			method:     http.MethodGet,
			target:     "/completions/probe?provider=test-echo",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong method",
			method:     http.MethodPost,
			target:     "/completions/probe?q=hello",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			req := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()
			f.handler.ServeProbe(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
		})
	}
}
