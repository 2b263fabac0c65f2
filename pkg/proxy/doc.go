// Package proxy is the HTTP face of the gateway: request decoding, error
// mapping and the two streaming transports.
//
// # Architecture
//
//   - Handlers: completions over HTTP and WebSocket, probe, providers,
//     sessions (pkg/proxy/handlers)
//   - Middleware: recovery, request ID, logging, CORS (pkg/proxy/middleware)
//   - Types: JSON request and error bodies (pkg/proxy/types)
//   - Transports: HTTPTransport and WSTransport, both satisfying
//     responder.Transport
//
// # Requests
//
// POST /completions accepts either a bare array of messages, with provider
// and model as query parameters, or an object:
//
//	{"provider": "test-echo", "model": "m", "messages": [{"role": "user", "content": "hi"}]}
//
// # Streaming
//
// The reply is the sequence of chunks, each followed by a newline, flushed
// as it arrives. There is no terminator: the stream ends when the body
// ends. Headers are deferred until the first chunk, so an error before it
// is reported as a status code with a JSON body:
//
//	{"error": {"type": "unknown_provider", "message": "...", "request_id": "..."}}
//
// An error after the first chunk cannot change the status any more. The
// body ends early and the failure shows up in logs, metrics and the session
// journal.
//
// # Status Codes
//
//	400  invalid request, unknown provider
//	413  request body too large
//	502  upstream unavailable or failed before the first chunk
//	503  server shutting down
//	504  no first chunk within the open deadline
package proxy
