package providers

import "time"

// Role identifies the author of a message.
type Role string

// Message roles accepted by every adapter.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation. A request carries an ordered slice
// of messages, oldest first.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChunkEvent is one incremental unit of generated text.
type ChunkEvent struct {
	// Content is the text delta. It may be empty on a final event.
	Content string

	// IsFinal marks the last event of a stream.
	IsFinal bool
}

// ProviderHealth represents the health status of an upstream.
type ProviderHealth struct {
	// IsHealthy indicates whether the upstream is currently reachable
	IsHealthy bool

	// LastCheck is when health was last updated
	LastCheck time.Time

	// LastError is the most recent failure, nil when healthy
	LastError error

	// ConsecutiveFailures counts failures since the last success
	ConsecutiveFailures int

	// LastSuccessfulRequest is when the upstream last answered with 2xx
	LastSuccessfulRequest time.Time

	// TotalRequests counts every upstream request
	TotalRequests int64

	// FailedRequests counts upstream requests that did not return 2xx
	FailedRequests int64
}

// ProviderConfig is the immutable configuration of one adapter instance.
type ProviderConfig struct {
	// Name is the registry key for this provider
	Name string

	// Type selects the adapter implementation
	Type string

	// Model is the model used when a request does not name one
	Model string

	// BaseURL is the upstream endpoint
	BaseURL string

	// APIKey is the upstream credential
	APIKey string

	// Timeout bounds connection establishment. Streams are never cut by it.
	Timeout time.Duration

	// HealthCheckInterval is the period of the background health checker
	HealthCheckInterval time.Duration

	// MaxIdleConns is the size of the idle connection pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the idle pool size per upstream host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle pooled connection is kept
	IdleConnTimeout time.Duration

	// MaxTokens caps the completion length for backends that require it
	MaxTokens int

	// Stub holds options for the in-process test adapters
	Stub StubOptions
}

// StubOptions configure the deterministic in-process adapters.
type StubOptions struct {
	// Chunks are emitted in order
	Chunks []string

	// FailAfter raises an upstream I/O error after this many chunks.
	// A negative value never fails once the stub is built.
	FailAfter int

	// ChunkDelay is slept before each chunk
	ChunkDelay time.Duration

	// OpenDelay is slept before Open returns
	OpenDelay time.Duration
}
