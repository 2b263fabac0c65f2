package health

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status values reported by the endpoints.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusDraining  = "draining"
	StatusUnhealthy = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc reports whether one dependency of the relay is usable.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// HealthStatus is the body of /health and /ready.
type HealthStatus struct {
	Status        string                 `json:"status"`
	UptimeSeconds float64                `json:"uptime_seconds,omitempty"`
	Checks        map[string]CheckResult `json:"checks,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Ready reports whether the status is served with 200.
func (s HealthStatus) Ready() bool {
	return s.Status == StatusOK || s.Status == StatusReady
}

// Checker answers liveness and readiness for the relay.
type Checker struct {
	timeout time.Duration
	started time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc

	draining atomic.Bool
}

// New returns a Checker that gives each check timeout to finish, or 5s when
// timeout is zero.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Checker{
		timeout: timeout,
		started: time.Now(),
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces the readiness check called name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// SetDraining makes readiness fail while the server drains.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// CheckLiveness reports that the process is up.
func (c *Checker) CheckLiveness(context.Context) HealthStatus {
	now := time.Now()
	return HealthStatus{
		Status:        StatusOK,
		UptimeSeconds: now.Sub(c.started).Seconds(),
		Timestamp:     now,
	}
}

// CheckReadiness runs the registered checks in parallel. Any failure makes
// the relay degraded; draining short-circuits the checks.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	if c.draining.Load() {
		return HealthStatus{Status: StatusDraining, Timestamp: time.Now()}
	}

	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			r := c.run(ctx, check)
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{Status: StatusReady, Checks: results, Timestamp: time.Now()}
	for _, r := range results {
		if r.Status != StatusOK {
			status.Status = StatusDegraded
			break
		}
	}
	return status
}

// run calls check, giving up after the checker timeout even when the check
// ignores its context.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	r := CheckResult{Status: StatusOK, DurationMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		r.Status = StatusUnhealthy
		r.Message = err.Error()
	}
	return r
}

// ProvidersCheck fails unless at least one provider is healthy. counts
// returns the healthy and total provider counts.
func ProvidersCheck(counts func() (healthy, total int)) CheckFunc {
	return func(context.Context) error {
		switch healthy, total := counts(); {
		case total == 0:
			return errors.New("no providers configured")
		case healthy == 0:
			return fmt.Errorf("no healthy provider (0 of %d)", total)
		}
		return nil
	}
}
