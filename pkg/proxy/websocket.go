package proxy

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeTimeout bounds writing a close frame.
const closeTimeout = time.Second

// WSTransport streams chunks over a WebSocket, one text frame per chunk.
//
// Before the first chunk an error is sent as a JSON text frame followed by
// a close frame. Afterwards the stream ends with close code 1000 on success
// or 1011 on failure, without reason text.
type WSTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	requestID    string

	// mu serializes writers; gorilla allows only one at a time
	mu      sync.Mutex
	started bool
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewWSTransport wraps conn. It starts a reader that closes Done when the
// client closes the connection or it breaks. The caller must have finished
// reading the request frame.
func NewWSTransport(conn *websocket.Conn, writeTimeout time.Duration, requestID string) *WSTransport {
	t := &WSTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
		requestID:    requestID,
		done:         make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// readLoop drains client frames so control frames are processed. Any data
// frame after the request is ignored.
func (t *WSTransport) readLoop() {
	defer t.doneOnce.Do(func() { close(t.done) })
	for {
		if _, _, err := t.conn.NextReader(); err != nil {
			return
		}
	}
}

// WriteChunk implements responder.Transport.
func (t *WSTransport) WriteChunk(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started = true
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(content))
}

// Fail implements responder.Transport.
func (t *WSTransport) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || t.closed {
		return
	}
	t.started = true

	status := StatusFor(err)
	if status != StatusClientClosedRequest {
		if body, merr := json.Marshal(HandleError(err, t.requestID)); merr == nil {
			_ = t.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
			_ = t.conn.WriteMessage(websocket.TextMessage, body)
		}
	}

	code := websocket.CloseInternalServerErr
	if status < http.StatusInternalServerError {
		code = websocket.ClosePolicyViolation
	}
	t.closeLocked(code, ErrorType(err))
}

// Finish implements responder.Transport.
func (t *WSTransport) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.closeLocked(websocket.CloseInternalServerErr, "")
		return
	}
	t.closeLocked(websocket.CloseNormalClosure, "")
}

// Done implements responder.Transport.
func (t *WSTransport) Done() <-chan struct{} {
	return t.done
}

func (t *WSTransport) closeLocked(code int, text string) {
	if t.closed {
		return
	}
	t.closed = true
	msg := websocket.FormatCloseMessage(code, text)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
}
