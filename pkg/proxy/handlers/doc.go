// Package handlers provides the HTTP handlers of the gateway.
//
// # Endpoints
//
//	POST /completions        streamed completion, newline-terminated chunks
//	GET  /completions/ws     the same over WebSocket, one text frame per chunk
//	GET  /completions/probe  ?provider=&model=&q=, single user message, text/plain
//	GET  /providers          per-provider health
//	GET  /sessions           recent session records from the journal
//
// Liveness, readiness and metrics are served by the telemetry packages.
//
// # Request Flow
//
// All three completion endpoints share one path:
//
//  1. Decode the request (bare message array or object)
//  2. Resolve the provider, falling back to the registry default
//  3. Resolve the model: requested, then provider model, then gateway default
//  4. session.Open with the configured open and idle deadlines
//  5. responder.Serve pumps chunks to the transport until the session ends
//
// An unknown provider is rejected before any upstream call. Errors that
// occur before the first chunk are reported as a JSON error with a status
// code (HTTP) or an error frame plus close code (WebSocket). After the first
// chunk the stream simply ends.
//
// # Error Format
//
//	{
//	  "error": {
//	    "type": "unknown_provider",
//	    "message": "unknown provider \"nope\"",
//	    "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	  }
//	}
package handlers
