package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &providers.ValidationError{Field: "messages", Message: "empty"}, http.StatusBadRequest},
		{"unknown provider", &providers.UnknownProviderError{Name: "nope"}, http.StatusBadRequest},
		{"unavailable", &providers.UnavailableError{Provider: "p", StatusCode: 503}, http.StatusBadGateway},
		{"stream", &providers.StreamError{Provider: "p", Message: "read failed"}, http.StatusBadGateway},
		{"parse", &providers.ParseError{Provider: "p", RawResponse: "{", Cause: errors.New("bad json")}, http.StatusBadGateway},
		{"timeout", &providers.TimeoutError{Provider: "p", Phase: "open", Timeout: time.Second}, http.StatusGatewayTimeout},
		{"wrapped timeout", fmt.Errorf("wrapped: %w", providers.ErrTimeout), http.StatusGatewayTimeout},
		{"shutdown", session.ErrShutdown, http.StatusServiceUnavailable},
		{"client gone", session.ErrClientGone, StatusClientClosedRequest},
		{"canceled", context.Canceled, StatusClientClosedRequest},
		{"request error", &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Type: types.ErrorTypeRequestTooLarge}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
	}{
		{
			name:        "unknown provider",
			err:         &providers.UnknownProviderError{Name: "nope"},
			wantStatus:  http.StatusBadRequest,
			wantType:    providers.KindUnknownProvider,
			wantMessage: (&providers.UnknownProviderError{Name: "nope"}).Error(),
		},
		{
			name:        "internal detail is hidden",
			err:         errors.New("secret internal state"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    providers.KindInternal,
			wantMessage: "an internal error occurred",
		},
		{
			name:       "shutdown",
			err:        session.ErrShutdown,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   types.ErrorTypeShuttingDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := WriteError(w, tt.err, "req-42"); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body types.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", body.Error.Type, tt.wantType)
			}
			if tt.wantMessage != "" && body.Error.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Error.Message, tt.wantMessage)
			}
			if body.Error.RequestID != "req-42" {
				t.Errorf("request_id = %q, want req-42", body.Error.RequestID)
			}
		})
	}
}
