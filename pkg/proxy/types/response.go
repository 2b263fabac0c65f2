package types

import (
	"time"

	"mercator-hq/relay/pkg/journal"
)

// ProvidersResponse is the body of GET /providers.
type ProvidersResponse struct {
	Default   string                    `json:"default,omitempty"`
	Total     int                       `json:"total"`
	Healthy   int                       `json:"healthy"`
	Providers map[string]ProviderStatus `json:"providers"`
}

// ProviderStatus is the health of one provider.
type ProviderStatus struct {
	Healthy             bool      `json:"healthy"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalRequests       int64     `json:"total_requests"`
	FailedRequests      int64     `json:"failed_requests"`
}

// SessionsResponse is the body of GET /sessions.
type SessionsResponse struct {
	Sessions []journal.Record `json:"sessions"`
	Count    int              `json:"count"`
}
