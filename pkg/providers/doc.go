// Package providers defines the adapter contract between the gateway and
// upstream chat-completion backends.
//
// # Overview
//
// Every backend is exposed as an Adapter. An adapter opens one streaming
// completion per call and normalizes the backend's incremental responses into
// ChunkEvents. Adapters differ only in how they translate a Message sequence
// into a backend request and how they parse backend events.
//
// # Architecture
//
//  1. Adapter / Stream - the contract (provider.go)
//  2. HTTPProvider - pooled HTTP client, single-attempt requests, health tracking
//  3. Adapters - openai (official SDK), gemini (genai SDK), anthropic and
//     generic (SSE over HTTPProvider), stub (in-process test doubles)
//
// # Errors
//
// Errors are typed and each one belongs to exactly one class, checked with
// errors.Is:
//
//	ErrInvalidRequest      *ValidationError       empty or malformed messages
//	ErrUnknownProvider     *UnknownProviderError  name not in the registry
//	ErrUpstreamUnavailable *UnavailableError      could not open the stream
//	ErrUpstreamStream      *StreamError, *ParseError  failure after open
//	ErrTimeout             *TimeoutError          open or idle deadline expired
//
// Nothing in this package retries. A failed open surfaces immediately.
//
// # Basic Usage
//
//	stream, err := adapter.Open(ctx, "gpt-4o", messages)
//	if errors.Is(err, providers.ErrUpstreamUnavailable) {
//	    // report 502
//	}
//	defer stream.Close()
//
//	for {
//	    chunk, err := stream.Recv(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// # Thread Safety
//
// Adapters are safe for concurrent use by many sessions. A Stream belongs to
// one session and must not be shared.
package providers
