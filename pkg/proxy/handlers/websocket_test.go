package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

func dialCompletions(t *testing.T, f *fixture, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler.ServeWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/completions/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

// readReply collects text frames until the server closes.
func readReply(t *testing.T, conn *websocket.Conn) ([]string, int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frames []string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				return frames, ce.Code
			}
			t.Fatalf("ReadMessage() error = %v", err)
		}
		frames = append(frames, string(data))
	}
}

func TestWebSocket_Stream(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		request    string
		wantFrames []string
		wantCode   int
	}{
		{
			name:       "echo",
			request:    `{"provider":"test-echo","messages":[{"role":"user","content":"hi"}]}`,
			wantFrames: []string{"He", "llo", "!"},
			wantCode:   websocket.CloseNormalClosure,
		},
		{
			name:       "provider from query",
			query:      "?provider=test-echo",
			request:    `[{"role":"user","content":"hi"}]`,
			wantFrames: []string{"He", "llo", "!"},
			wantCode:   websocket.CloseNormalClosure,
		},
		{
			name:       "failure after first chunk",
			request:    `{"provider":"test-fail-mid","messages":[{"role":"user","content":"hi"}]}`,
			wantFrames: []string{"He"},
			wantCode:   websocket.CloseInternalServerErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			conn, _, err := dialCompletions(t, f, tt.query, nil)
			if err != nil {
				t.Fatalf("Dial() error = %v", err)
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.request)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}

			frames, code := readReply(t, conn)
			if strings.Join(frames, "|") != strings.Join(tt.wantFrames, "|") {
				t.Errorf("frames = %q, want %q", frames, tt.wantFrames)
			}
			if code != tt.wantCode {
				t.Errorf("close code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestWebSocket_Errors(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		wantType string
	}{
		{
			name:     "unknown provider",
			request:  `{"provider":"nope","messages":[{"role":"user","content":"hi"}]}`,
			wantType: providers.KindUnknownProvider,
		},
		{
			name:     "malformed request",
			request:  `not json`,
			wantType: providers.KindInvalidRequest,
		},
		{
			name:     "empty messages",
			request:  `[]`,
			wantType: providers.KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			conn, _, err := dialCompletions(t, f, "", nil)
			if err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.request)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}

			frames, code := readReply(t, conn)
			if len(frames) != 1 {
				t.Fatalf("frames = %q, want one error frame", frames)
			}
			var resp types.ErrorResponse
			if err := json.Unmarshal([]byte(frames[0]), &resp); err != nil {
				t.Fatalf("error frame is not JSON: %v", err)
			}
			if resp.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Error.Type, tt.wantType)
			}
			if code != websocket.ClosePolicyViolation {
				t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
			}
			if n := f.echo.Opens() + f.failMid.Opens(); n != 0 {
				t.Errorf("upstream opens = %d, want 0", n)
			}
		})
	}
}

func TestWebSocket_Origin(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.CORS = config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://app.example.com"}}
	})

	_, resp, err := dialCompletions(t, f, "", http.Header{"Origin": []string{"https://evil.example"}})
	if err == nil {
		t.Fatal("Dial() succeeded, want rejected origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}
