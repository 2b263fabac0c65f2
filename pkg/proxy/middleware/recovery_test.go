package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("He\n"))
			},
			wantCode: http.StatusOK,
			wantBody: "He\n",
		},
		{
			name:     "string panic",
			handler:  func(http.ResponseWriter, *http.Request) { panic("adapter bug") },
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "error panic",
			handler:  func(http.ResponseWriter, *http.Request) { panic(errors.New("nil map")) },
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequestIDMiddleware(RecoveryMiddleware(tt.handler))

			req := httptest.NewRequest(http.MethodPost, "/completions", nil)
			req.Header.Set(RequestIDHeader, "req-panic")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				if rec.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
				}
				return
			}

			var body types.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Type != providers.KindInternal {
				t.Errorf("type = %q, want %q", body.Error.Type, providers.KindInternal)
			}
			if body.Error.RequestID != "req-panic" {
				t.Errorf("request_id = %q, want req-panic", body.Error.RequestID)
			}
			if strings.Contains(body.Error.Message, "nil map") || strings.Contains(body.Error.Message, "adapter bug") {
				t.Errorf("message leaks panic value: %q", body.Error.Message)
			}
		})
	}
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recover() = %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/completions/probe", nil))
	t.Error("ErrAbortHandler was swallowed")
}
