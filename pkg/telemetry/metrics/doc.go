// Package metrics provides Prometheus metrics for the relay.
//
// # Metrics Categories
//
//   - Session metrics: active sessions, terminal states, chunks, bytes,
//     duration and time to first chunk
//   - Provider metrics: health, health changes and failures by error kind
//   - Request metrics: requests by transport and status, early rejections
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle("/metrics", collector.Handler())
//
//	// sessions report to the collector
//	sess, err := session.Open(ctx, adapter, req, session.Options{Observer: collector})
//
// # Cardinality
//
// Model names come from clients. Past 1000 provider/model pairs new models are
// recorded under the label "other".
package metrics
