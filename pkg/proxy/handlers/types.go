package handlers

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/registry"
	"mercator-hq/relay/pkg/responder"
	"mercator-hq/relay/pkg/session"
)

// ProviderRegistry resolves provider names to adapters.
type ProviderRegistry interface {
	Resolve(name string) (providers.Adapter, error)
	Default() string
	Health() registry.HealthSummary
}

// RequestMetrics records request outcomes. It may be nil.
type RequestMetrics interface {
	RecordRequest(transport string, status int)
	RecordRejected(kind string)
}

// Options configures the completion handlers.
type Options struct {
	// Registry is required.
	Registry ProviderRegistry

	// Responder defaults to responder.New with the default logger.
	Responder *responder.Responder

	// Observer is told about every session, typically metrics plus the
	// journal recorder.
	Observer session.Observer

	// Tracer starts session spans. Nil uses the global provider.
	Tracer trace.Tracer

	Metrics RequestMetrics

	// ResolveModel picks the model when the request names none. Nil keeps
	// the requested model as is.
	ResolveModel func(provider, requested string) string

	// OpenTimeout and IdleTimeout bound each session.
	OpenTimeout time.Duration
	IdleTimeout time.Duration

	// WriteTimeout bounds each chunk write to the client.
	WriteTimeout time.Duration

	// MaxBodyBytes limits request bodies and WebSocket request frames.
	MaxBodyBytes int64

	// ContentType of streamed HTTP bodies.
	ContentType string

	// CORS supplies the origin list checked on WebSocket upgrades.
	CORS config.CORSConfig
}
