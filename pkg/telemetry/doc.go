// Package telemetry wires the relay's observability: structured logging,
// Prometheus metrics, OpenTelemetry tracing and health endpoints.
//
// # Components
//
//   - logging: slog handler, redaction, rotating file sink
//   - metrics: Prometheus collector fed by session observers
//   - tracing: OTLP tracer provider and span helpers
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, version)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	opts := session.Options{Observer: tel.Metrics, Tracer: tel.Tracer.Tracer()}
package telemetry
