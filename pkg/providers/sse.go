package providers

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELine bounds a single SSE line. Upstreams occasionally send large
// usage or tool payloads on one line.
const maxSSELine = 1 << 20

// SSEEvent is one Server-Sent Event.
type SSEEvent struct {
	// Event is the "event:" field, empty when absent
	Event string

	// Data is the concatenation of all "data:" lines joined by newlines
	Data string
}

// SSEReader reads Server-Sent Events from an upstream body.
type SSEReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// NewSSEReader wraps body. Closing the reader closes body.
func NewSSEReader(body io.ReadCloser) *SSEReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxSSELine)
	return &SSEReader{body: body, scanner: scanner}
}

// Next reads a complete event.
// Returns io.EOF when the body ends with no pending event.
func (r *SSEReader) Next() (SSEEvent, error) {
	if r.closed {
		return SSEEvent{}, io.EOF
	}

	var event SSEEvent
	var dataLines []string
	seen := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if seen {
				break
			}
			continue
		}

		// Comment line (keep-alive)
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Event = value
			seen = true
		case "data":
			dataLines = append(dataLines, value)
			seen = true
		}
		// Ignore other SSE fields (id, retry)
	}

	if err := r.scanner.Err(); err != nil {
		return SSEEvent{}, err
	}
	if !seen {
		return SSEEvent{}, io.EOF
	}

	event.Data = strings.Join(dataLines, "\n")
	return event, nil
}

// Close closes the underlying body. It is safe to call more than once.
func (r *SSEReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}
