package tracing

import (
	"mercator-hq/relay/pkg/providers"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on relay spans. Standard keys follow OpenTelemetry
// semantic conventions; relay-specific keys live under "relay.".
const (
	// Provider attributes
	AttrProvider = "relay.provider"
	AttrModel    = "relay.model"

	// Request attributes
	AttrRequestID = "relay.request_id"
	AttrTransport = "relay.transport"

	// Session attributes
	AttrSessionID     = "relay.session.id"
	AttrSessionState  = "relay.session.state"
	AttrSessionReason = "relay.session.reason"
	AttrChunks        = "relay.session.chunks"
	AttrBytes         = "relay.session.bytes"

	// Error attributes
	AttrErrorType    = "relay.error.type"
	AttrErrorMessage = "error.message"
)

// SetProviderAttributes sets provider and model on a span.
func SetProviderAttributes(span trace.Span, provider, model string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
}

// SetRequestAttributes sets the request ID and transport ("http" or "ws").
func SetRequestAttributes(span trace.Span, requestID, transport string) {
	attrs := []attribute.KeyValue{attribute.String(AttrRequestID, requestID)}
	if transport != "" {
		attrs = append(attrs, attribute.String(AttrTransport, transport))
	}
	span.SetAttributes(attrs...)
}

func errorAttributes(err error) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, providers.Kind(err)),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
