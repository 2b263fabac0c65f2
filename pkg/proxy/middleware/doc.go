// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps its mux outermost first:
//
//	handler = Recovery(RequestID(Tracing(Logging(CORS(mux)))))
//
// Recovery sits outside everything so a panic in any layer becomes a 500.
// RequestID runs before tracing and logging so both see the ID.
//
// There is deliberately no whole-request timeout. Completion responses are
// streamed for as long as the upstream produces chunks; the session enforces
// open and idle deadlines and the transport enforces a per-chunk write
// deadline.
//
// # Request ID
//
// RequestIDMiddleware keeps a client-supplied X-Request-ID of up to 128
// bytes and otherwise generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored with logging.WithRequestID, so every log line written
// with a request context carries it.
//
// # Logging
//
// LoggingMiddleware writes one "request completed" line per request:
//
//	{
//	  "time": "2026-03-02T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/completions",
//	  "status": 200,
//	  "bytes": 6,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// The wrapped writer supports Flush, Hijack and Unwrap, so streaming and
// WebSocket upgrades work behind it.
//
// # CORS
//
//	proxy:
//	  cors:
//	    enabled: true
//	    allowed_origins: ["https://app.example.com"]
//	    allowed_methods: ["GET", "POST", "OPTIONS"]
//	    allowed_headers: ["Content-Type", "X-Request-ID"]
//	    max_age: 3600
//
// OriginAllowed applies the same origin list to WebSocket upgrades.
//
// # Recovery
//
// RecoveryMiddleware converts panics into:
//
//	{"error": {"type": "internal_error", "message": "an internal error occurred", "request_id": "..."}}
//
// The panic value and stack are logged only.
package middleware
