package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Streamed response content types.
const (
	ContentTypeEventStream = "text/event-stream"
	ContentTypePlain       = "text/plain; charset=utf-8"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// HTTPOptions configures an HTTPTransport.
type HTTPOptions struct {
	// ContentType of the streamed body. Default: text/event-stream
	ContentType string

	// WriteTimeout bounds each chunk write. Zero disables it.
	WriteTimeout time.Duration

	// RequestID is echoed in error bodies.
	RequestID string
}

// HTTPTransport streams chunks over a chunked HTTP/1.1 response (or HTTP/2
// DATA frames). Each chunk is written as content followed by a newline and
// flushed straight away.
//
// Headers are held back until the first chunk so that a failure before it
// can still be reported with a proper status code.
type HTTPTransport struct {
	w    http.ResponseWriter
	rc   *http.ResponseController
	done <-chan struct{}
	opts HTTPOptions

	started bool
	status  int
}

// NewHTTPTransport wraps w for a single streamed response.
func NewHTTPTransport(w http.ResponseWriter, r *http.Request, opts HTTPOptions) *HTTPTransport {
	if opts.ContentType == "" {
		opts.ContentType = ContentTypeEventStream
	}
	return &HTTPTransport{
		w:    w,
		rc:   http.NewResponseController(w),
		done: r.Context().Done(),
		opts: opts,
	}
}

// WriteChunk implements responder.Transport.
func (t *HTTPTransport) WriteChunk(content string) error {
	if !t.started {
		t.writeHeaders()
	}

	if t.opts.WriteTimeout > 0 {
		if err := t.rc.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}

	if _, err := io.WriteString(t.w, content+"\n"); err != nil {
		return err
	}
	if err := t.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Fail implements responder.Transport. It is a no-op once streaming began.
func (t *HTTPTransport) Fail(err error) {
	if t.started {
		return
	}
	t.started = true
	t.status = StatusFor(err)

	if t.status == StatusClientClosedRequest {
		return
	}
	if werr := WriteError(t.w, err, t.opts.RequestID); werr != nil {
		slog.Debug("failed to write error response", "error", werr)
		return
	}
	_ = t.rc.Flush()
}

// Finish implements responder.Transport. The body simply ends; a failure
// after the first chunk is visible only in logs and metrics.
func (t *HTTPTransport) Finish(err error) {
	if !t.started {
		// A completion that produced no content.
		t.writeHeaders()
		_ = t.rc.Flush()
	}
	if t.opts.WriteTimeout > 0 {
		_ = t.rc.SetWriteDeadline(time.Time{})
	}
}

// Done implements responder.Transport.
func (t *HTTPTransport) Done() <-chan struct{} {
	return t.done
}

// Status returns the status code sent, or 0 before anything was written.
func (t *HTTPTransport) Status() int {
	return t.status
}

func (t *HTTPTransport) writeHeaders() {
	t.started = true
	t.status = http.StatusOK

	h := t.w.Header()
	h.Set("Content-Type", t.opts.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	// Keep reverse proxies from buffering the stream.
	h.Set("X-Accel-Buffering", "no")
	t.w.WriteHeader(http.StatusOK)
}
