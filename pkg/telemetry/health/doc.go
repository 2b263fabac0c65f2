// Package health provides the liveness and readiness endpoints.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 503 when a check fails or the relay is draining
//   - /version: build information
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("providers", health.ProvidersCheck(func() (int, int) {
//	    h := reg.Health()
//	    return h.Healthy, h.Total
//	}))
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
//
// On shutdown call SetDraining(true) before the server stops accepting
// connections.
package health
