// Package tracing provides OpenTelemetry tracing for the relay.
//
// # Overview
//
// Each completion request produces a "completion.request" span from the proxy
// and a child "completion.session" span covering the upstream stream. Session
// spans carry the provider, model, final state, end reason and chunk count.
// Spans are exported over OTLP gRPC.
//
// # Trace Context Propagation
//
// W3C Trace Context headers on incoming requests are honored and forwarded
// to HTTP upstreams:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling Strategies
//
//   - always: sample all traces
//   - never: sample no traces
//   - ratio: sample a fraction of traces by trace ID
//
// All strategies are parent-based.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "completion.request")
//	defer span.End()
//
// When tracing is disabled New returns a Tracer backed by a noop provider.
package tracing
