package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/relay/pkg/journal"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
)

// ProvidersHandler serves GET /providers with per-provider health.
type ProvidersHandler struct {
	Registry ProviderRegistry
}

// NewProvidersHandler creates a providers handler.
func NewProvidersHandler(reg ProviderRegistry) *ProvidersHandler {
	return &ProvidersHandler{Registry: reg}
}

// ServeHTTP implements http.Handler.
func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	summary := h.Registry.Health()
	resp := types.ProvidersResponse{
		Default:   h.Registry.Default(),
		Total:     summary.Total,
		Healthy:   summary.Healthy,
		Providers: make(map[string]types.ProviderStatus, len(summary.Details)),
	}
	for name, health := range summary.Details {
		resp.Providers[name] = providerStatus(health)
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to write providers response", "error", err)
	}
}

func providerStatus(h providers.ProviderHealth) types.ProviderStatus {
	status := types.ProviderStatus{
		Healthy:             h.IsHealthy,
		LastCheck:           h.LastCheck,
		ConsecutiveFailures: h.ConsecutiveFailures,
		TotalRequests:       h.TotalRequests,
		FailedRequests:      h.FailedRequests,
	}
	if h.LastError != nil {
		status.LastError = h.LastError.Error()
	}
	return status
}

// SessionsHandler serves GET /sessions?limit=&provider=&state= from the
// session journal.
type SessionsHandler struct {
	Store journal.Store
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(store journal.Store) *SessionsHandler {
	return &SessionsHandler{Store: store}
}

// ServeHTTP implements http.Handler.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	q := r.URL.Query()
	filter := journal.Filter{
		Provider: q.Get("provider"),
		State:    q.Get("state"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			_ = proxy.WriteError(w, &providers.ValidationError{
				Field:   "limit",
				Message: "must be a non-negative integer",
			}, requestID)
			return
		}
		filter.Limit = limit
	}

	records, err := h.Store.List(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list sessions", "error", err)
		_ = proxy.WriteError(w, err, requestID)
		return
	}
	if records == nil {
		records = []journal.Record{}
	}

	resp := types.SessionsResponse{Sessions: records, Count: len(records)}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write sessions response", "error", err)
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed, types.NewErrorResponse(
		types.ErrorTypeMethodNotAllowed,
		"method "+r.Method+" not allowed",
		middleware.GetRequestID(r.Context()),
	))
	return false
}
