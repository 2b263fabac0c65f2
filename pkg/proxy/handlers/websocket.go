package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
)

// requestFrameTimeout bounds how long a client may take to send the request
// frame after the upgrade.
const requestFrameTimeout = 10 * time.Second

// ServeWebSocket handles GET /completions/ws. The first client frame is the
// request, in either accepted shape; provider and model may also come from
// the query string. The reply is streamed one text frame per chunk and the
// server closes the connection when the session ends.
func (h *CompletionHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(h.opts.CORS, r.Header.Get("Origin"))
		},
	}

	conn, err := upgrader.Upgrade(w, r, http.Header{middleware.RequestIDHeader: []string{requestID}})
	if err != nil {
		// The upgrader has already written an HTTP error.
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		h.recordRequest(proxy.TransportWebSocket, http.StatusBadRequest)
		return
	}
	defer conn.Close()

	// The server's read and write timeouts were armed for the upgrade
	// request; from here on deadlines are set per frame.
	_ = conn.NetConn().SetDeadline(time.Time{})

	conn.SetReadLimit(h.opts.MaxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(requestFrameTimeout))
	_, data, readErr := conn.ReadMessage()
	_ = conn.SetReadDeadline(time.Time{})

	t := proxy.NewWSTransport(conn, h.opts.WriteTimeout, requestID)

	if readErr != nil {
		if errors.Is(readErr, websocket.ErrReadLimit) {
			h.rejectFrame(t, &proxy.RequestError{
				StatusCode: http.StatusRequestEntityTooLarge,
				Type:       types.ErrorTypeRequestTooLarge,
				Message:    "request frame too large",
				Cause:      readErr,
			})
			return
		}
		slog.DebugContext(ctx, "websocket closed before request frame", "error", readErr)
		h.recordRequest(proxy.TransportWebSocket, proxy.StatusClientClosedRequest)
		return
	}

	req, err := proxy.DecodeCompletionRequest(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse completion request", "error", err)
		h.rejectFrame(t, err)
		return
	}
	proxy.ApplyQuery(req, r)

	h.stream(ctx, r, req, t, proxy.TransportWebSocket)
}

func (h *CompletionHandler) rejectFrame(t *proxy.WSTransport, err error) {
	h.recordRejected(err)
	h.recordRequest(proxy.TransportWebSocket, proxy.StatusFor(err))
	t.Fail(err)
}
