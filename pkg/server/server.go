package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// forceCloseTimeout bounds how long cancelled sessions get to unwind after
// the drain period before connections are closed.
const forceCloseTimeout = 5 * time.Second

// Handlers are the endpoints served by the gateway. Completions and Health
// are required; the others are mounted when set.
type Handlers struct {
	Completions *handlers.CompletionHandler
	Providers   http.Handler
	Sessions    http.Handler
	Metrics     http.Handler
	Version     http.Handler
	Health      *health.Checker

	// MetricsPath is where Metrics is mounted. Default: "/metrics".
	MetricsPath string
}

// Server is the gateway's HTTP server.
type Server struct {
	config         *config.ProxyConfig
	securityConfig *config.SecurityConfig
	handlers       Handlers

	httpServer *http.Server
	cancelBase context.CancelCauseFunc

	// streams counts in-flight completion requests, including hijacked
	// WebSocket connections that http.Server.Shutdown does not track.
	streams sync.WaitGroup
	active  atomic.Int64

	ready chan struct{}
	addr  atomic.Value

	mu        sync.RWMutex
	isRunning bool
}

// New creates a server.
func New(cfg *config.ProxyConfig, securityCfg *config.SecurityConfig, h Handlers) *Server {
	return &Server{
		config:         cfg,
		securityConfig: securityCfg,
		handlers:       h,
		ready:          make(chan struct{}),
	}
}

// Run listens and serves until ctx is done, then drains. In-flight
// sessions get ShutdownTimeout to finish; after that they are cancelled
// with session.ErrShutdown and the remaining connections are closed.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	baseCtx, cancelBase := context.WithCancelCause(context.Background())
	s.cancelBase = cancelBase
	defer cancelBase(session.ErrShutdown)

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		// Streams run for as long as the upstream produces; the per-chunk
		// write deadline is set by the transports.
		WriteTimeout:   0,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return baseCtx },
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	if s.securityConfig != nil && s.securityConfig.TLS.Enabled {
		tlsConfig, err := s.configureTLS(baseCtx)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.addr.Store(ln.Addr().String())

	tlsEnabled := s.httpServer.TLSConfig != nil
	slog.Info("starting relay server",
		"address", ln.Addr().String(),
		"tls_enabled", tlsEnabled,
	)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if tlsEnabled {
			// The certificate comes from TLSConfig.GetCertificate.
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()
	close(s.ready)

	select {
	case <-ctx.Done():
		slog.Info("shutdown requested", "cause", context.Cause(ctx))
	case err := <-errChan:
		return err
	}

	return s.shutdown()
}

// shutdown drains in-flight requests, then cancels whatever is left.
func (s *Server) shutdown() error {
	if s.handlers.Health != nil {
		s.handlers.Health.SetDraining(true)
	}

	slog.Info("draining",
		"timeout", s.config.ShutdownTimeout.String(),
		"active_streams", s.active.Load(),
	)

	drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(drainCtx)
	if err == nil {
		err = s.waitStreams(drainCtx)
	}
	if err == nil {
		slog.Info("relay server stopped")
		return nil
	}

	slog.Warn("drain period expired, cancelling active sessions", "active_streams", s.active.Load())
	s.cancelBase(session.ErrShutdown)

	forceCtx, forceCancel := context.WithTimeout(context.Background(), forceCloseTimeout)
	defer forceCancel()
	if err := s.waitStreams(forceCtx); err != nil {
		slog.Error("sessions did not stop after cancellation", "active_streams", s.active.Load())
	}

	if err := s.httpServer.Close(); err != nil {
		return fmt.Errorf("server close error: %w", err)
	}
	slog.Info("relay server stopped")
	return nil
}

func (s *Server) waitStreams(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track counts a completion request as in flight until it returns.
func (s *Server) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.streams.Add(1)
		s.active.Add(1)
		defer func() {
			s.active.Add(-1)
			s.streams.Done()
		}()
		next(w, r)
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	c := s.handlers.Completions
	mux.HandleFunc("/completions", s.track(c.ServeHTTP))
	mux.HandleFunc("/completions/ws", s.track(c.ServeWebSocket))
	mux.HandleFunc("/completions/probe", s.track(c.ServeProbe))

	if s.handlers.Health != nil {
		mux.Handle("/health", s.handlers.Health.LivenessHandler())
		mux.Handle("/ready", s.handlers.Health.ReadinessHandler())
	}
	if s.handlers.Providers != nil {
		mux.Handle("/providers", s.handlers.Providers)
	}
	if s.handlers.Sessions != nil {
		mux.Handle("/sessions", s.handlers.Sessions)
	}
	if s.handlers.Metrics != nil {
		path := s.handlers.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.handlers.Metrics)
	}
	if s.handlers.Version != nil {
		mux.Handle("/version", s.handlers.Version)
	}

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(s.config.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// configureTLS builds the listener TLS config from the security settings.
// The certificate is reloaded from disk until ctx is done.
func (s *Server) configureTLS(ctx context.Context) (*tls.Config, error) {
	tlsCfg := s.securityConfig.TLS

	if tlsCfg.CertFile == "" {
		return nil, errors.New("TLS cert file not specified")
	}
	if tlsCfg.KeyFile == "" {
		return nil, errors.New("TLS key file not specified")
	}

	reloader := newCertReloader(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.ReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return nil, err
	}

	minVersion := uint16(tls.VersionTLS12)
	if tlsCfg.MinVersion == "1.3" {
		minVersion = tls.VersionTLS13
	}

	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: reloader.GetCertificate,
	}, nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, or "" before Ready.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
