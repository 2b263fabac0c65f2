// Package server provides the gateway's HTTP server.
//
// # Basic Usage
//
//	srv := server.New(&cfg.Proxy, &cfg.Security, server.Handlers{
//	    Completions: handlers.NewCompletionHandler(opts),
//	    Providers:   handlers.NewProvidersHandler(reg),
//	    Metrics:     collector.Handler(),
//	    Health:      checker,
//	})
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
//
// Run binds the listener, closes Ready, and serves until ctx is done.
//
// # Routes
//
//	POST /completions
//	GET  /completions/ws
//	GET  /completions/probe
//	GET  /health, /ready
//	GET  /providers, /sessions, /metrics, /version (when configured)
//
// # Middleware Chain
//
// Outermost first: recovery, request ID, trace context, logging, CORS.
//
// # Graceful Shutdown
//
// When ctx is done:
//  1. Readiness starts failing (draining)
//  2. The listener closes; idle connections are closed
//  3. In-flight completions, WebSocket ones included, get
//     proxy.shutdown_timeout to finish
//  4. Whatever is left is cancelled with session.ErrShutdown. Sessions that
//     have not sent a chunk yet answer 503 shutting_down
//  5. Remaining connections are closed
//
// The server sets no http.Server WriteTimeout. Streams are bounded by the
// session deadlines and the per-chunk write deadline instead.
//
// # TLS
//
//	security:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//	    min_version: "1.3"
package server
