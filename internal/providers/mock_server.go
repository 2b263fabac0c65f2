package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a fake upstream for adapter tests. It serves canned JSON or
// SSE responses per path and records what it received.
type MockServer struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[string]MockResponse
	requests    []RecordedRequest
	disconnects chan string
}

// AnyPath registers a response served for every path without its own entry.
const AnyPath = "*"

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string

	// Events are written as SSE frames, each flushed separately.
	Events []SSEFrame

	// EventDelay is slept between events.
	EventDelay time.Duration

	// Abort drops the connection after all events are written, without a
	// clean end of body.
	Abort bool

	// Hold keeps the response open after the events until the client goes
	// away. The disconnect is reported on Disconnects.
	Hold bool
}

// SSEFrame is one Server-Sent Event.
type SSEFrame struct {
	Event string
	Data  string
}

// RecordedRequest is a request seen by the mock.
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses:   make(map[string]MockResponse),
		disconnects: make(chan string, 16),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.CloseClientConnections()
	ms.server.Close()
}

// SetResponse sets a mock response for a specific path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// LastRequest returns the most recent request, or false if none arrived.
func (ms *MockServer) LastRequest() (RecordedRequest, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return RecordedRequest{}, false
	}
	return ms.requests[len(ms.requests)-1], true
}

// Disconnects receives the request path each time a held response observes
// its client going away.
func (ms *MockServer) Disconnects() <-chan string {
	return ms.disconnects
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header.Clone(),
		Body:    body,
	})
	response, ok := ms.responses[r.URL.Path]
	if !ok {
		response, ok = ms.responses[AnyPath]
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.Events) > 0 || response.Hold {
		ms.handleStream(w, r, response)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// handleStream handles Server-Sent Events streaming responses.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher := w.(http.Flusher)
	flusher.Flush()

	for i, frame := range response.Events {
		if i > 0 && response.EventDelay > 0 {
			select {
			case <-time.After(response.EventDelay):
			case <-r.Context().Done():
				ms.disconnects <- r.URL.Path
				return
			}
		}
		if frame.Event != "" {
			fmt.Fprintf(w, "event: %s\n", frame.Event)
		}
		fmt.Fprintf(w, "data: %s\n\n", frame.Data)
		flusher.Flush()
	}

	if response.Abort {
		panic(http.ErrAbortHandler)
	}

	if response.Hold {
		<-r.Context().Done()
		ms.disconnects <- r.URL.Path
	}
}
