package proxy

import (
	"net"
	"net/http"
	"strings"
	"time"

	"mercator-hq/relay/pkg/proxy/types"
)

// Transport names used in logs and metric labels.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
	TransportProbe     = "probe"
)

// RequestMetadata describes an inbound completion request for logging and
// tracing. It never carries message content.
type RequestMetadata struct {
	RequestID string
	Transport string
	Provider  string
	Model     string
	Messages  int

	Method     string
	Path       string
	UserAgent  string
	RemoteAddr string
	Timestamp  time.Time
}

// ExtractRequestMetadata collects metadata from r and the decoded request.
func ExtractRequestMetadata(r *http.Request, req *types.CompletionRequest, transport, requestID string) *RequestMetadata {
	md := &RequestMetadata{
		RequestID:  requestID,
		Transport:  transport,
		Method:     r.Method,
		Path:       r.URL.Path,
		UserAgent:  r.UserAgent(),
		RemoteAddr: ClientIP(r),
		Timestamp:  time.Now(),
	}
	if req != nil {
		md.Provider = req.Provider
		md.Model = req.Model
		md.Messages = len(req.Messages)
	}
	return md
}

// LogAttrs returns the metadata as slog key/value pairs. Request ID and
// provider are left to the logging context.
func (m *RequestMetadata) LogAttrs() []any {
	return []any{
		"transport", m.Transport,
		"model", m.Model,
		"messages", m.Messages,
		"remote_addr", m.RemoteAddr,
		"user_agent", m.UserAgent,
	}
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
