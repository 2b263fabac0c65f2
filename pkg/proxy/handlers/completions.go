package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/responder"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// CompletionHandler serves streamed completions over plain HTTP, WebSocket
// and the probe endpoint. All three share one session path.
type CompletionHandler struct {
	opts      Options
	responder *responder.Responder
}

// NewCompletionHandler creates a completion handler.
func NewCompletionHandler(opts Options) *CompletionHandler {
	resp := opts.Responder
	if resp == nil {
		resp = responder.New(responder.Options{})
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = proxy.DefaultMaxBodyBytes
	}
	return &CompletionHandler{opts: opts, responder: resp}
}

// ServeHTTP handles POST /completions.
func (h *CompletionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reject(w, &proxy.RequestError{
			StatusCode: http.StatusMethodNotAllowed,
			Type:       types.ErrorTypeMethodNotAllowed,
			Message:    "method " + r.Method + " not allowed, use POST",
		}, proxy.TransportHTTP, requestID)
		return
	}

	req, err := proxy.ParseCompletionRequest(w, r, h.opts.MaxBodyBytes)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse completion request", "error", err)
		h.reject(w, err, proxy.TransportHTTP, requestID)
		return
	}

	t := proxy.NewHTTPTransport(w, r, proxy.HTTPOptions{
		ContentType:  h.opts.ContentType,
		WriteTimeout: h.opts.WriteTimeout,
		RequestID:    requestID,
	})
	h.stream(ctx, r, req, t, proxy.TransportHTTP)
}

// ServeProbe handles GET /completions/probe?provider=&model=&q=. It sends
// q as a single user message and streams plain text.
func (h *CompletionHandler) ServeProbe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.reject(w, &proxy.RequestError{
			StatusCode: http.StatusMethodNotAllowed,
			Type:       types.ErrorTypeMethodNotAllowed,
			Message:    "method " + r.Method + " not allowed, use GET",
		}, proxy.TransportProbe, requestID)
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		h.reject(w, &providers.ValidationError{
			Field:   "q",
			Message: "query parameter is required",
		}, proxy.TransportProbe, requestID)
		return
	}

	req := &types.CompletionRequest{
		Messages: []types.Message{{Role: string(providers.RoleUser), Content: q}},
	}
	proxy.ApplyQuery(req, r)

	t := proxy.NewHTTPTransport(w, r, proxy.HTTPOptions{
		ContentType:  proxy.ContentTypePlain,
		WriteTimeout: h.opts.WriteTimeout,
		RequestID:    requestID,
	})
	h.stream(ctx, r, req, t, proxy.TransportProbe)
}

// reject reports a request that never reached a session.
func (h *CompletionHandler) reject(w http.ResponseWriter, err error, transport, requestID string) {
	h.recordRejected(err)
	h.recordRequest(transport, proxy.StatusFor(err))
	if werr := proxy.WriteError(w, err, requestID); werr != nil {
		slog.Debug("failed to write error response", "error", werr)
	}
}

// stream resolves the provider, opens a session and serves it to t.
func (h *CompletionHandler) stream(ctx context.Context, r *http.Request, req *types.CompletionRequest, t responder.Transport, transport string) responder.Result {
	requestID := middleware.GetRequestID(ctx)
	md := proxy.ExtractRequestMetadata(r, req, transport, requestID)

	providerName := req.Provider
	if providerName == "" {
		providerName = h.opts.Registry.Default()
	}

	adapter, err := h.opts.Registry.Resolve(providerName)
	if err != nil {
		slog.WarnContext(ctx, "unknown provider", append(md.LogAttrs(), "provider", providerName, "error", err)...)
		t.Fail(err)
		h.recordRejected(err)
		h.recordRequest(transport, proxy.StatusFor(err))
		return responder.Result{State: session.Failed, Err: err}
	}

	model := req.Model
	if h.opts.ResolveModel != nil {
		model = h.opts.ResolveModel(providerName, req.Model)
	}
	md.Provider, md.Model = providerName, model

	ctx = logging.WithProvider(ctx, providerName)
	sess, err := session.Open(ctx, adapter, session.Request{
		RequestID: requestID,
		Provider:  providerName,
		Model:     model,
		Messages:  req.ProviderMessages(),
	}, session.Options{
		OpenTimeout: h.opts.OpenTimeout,
		IdleTimeout: h.opts.IdleTimeout,
		Observer:    h.opts.Observer,
		Tracer:      h.opts.Tracer,
	})
	ctx = logging.WithSessionID(ctx, sess.ID())
	if err != nil && errors.Is(err, providers.ErrInvalidRequest) {
		h.recordRejected(err)
	}

	start := time.Now()
	res := h.responder.Serve(ctx, sess, t)

	status := http.StatusOK
	if res.Chunks == 0 && res.Err != nil {
		status = proxy.StatusFor(res.Err)
	}
	h.recordRequest(transport, status)

	attrs := append(md.LogAttrs(),
		"state", res.State.String(),
		"chunks", res.Chunks,
		"bytes", res.Bytes,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	switch {
	case res.State == session.Completed:
		slog.InfoContext(ctx, "completion finished", attrs...)
	case res.State == session.Cancelled:
		slog.InfoContext(ctx, "completion cancelled", append(attrs, "reason", res.Reason.String())...)
	default:
		slog.WarnContext(ctx, "completion failed", append(attrs, "error", res.Err)...)
	}
	return res
}

func (h *CompletionHandler) recordRequest(transport string, status int) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.RecordRequest(transport, status)
	}
}

func (h *CompletionHandler) recordRejected(err error) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.RecordRejected(proxy.ErrorType(err))
	}
}
