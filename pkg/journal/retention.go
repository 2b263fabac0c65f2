package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention prunes records older than a maximum age on a cron schedule.
type Retention struct {
	store    Store
	maxAge   time.Duration
	schedule string
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	logger  *slog.Logger
}

// NewRetention creates a retention job. schedule uses standard cron syntax
// or descriptors such as "@hourly".
func NewRetention(store Store, maxAge time.Duration, schedule string) *Retention {
	return &Retention{
		store:    store,
		maxAge:   maxAge,
		schedule: schedule,
		now:      time.Now,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "journal.retention"),
	}
}

// Start schedules pruning until ctx is cancelled. An empty schedule or a
// zero max age disables retention.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schedule == "" || r.maxAge <= 0 {
		r.logger.Info("journal retention disabled")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}

	if _, err := r.cron.AddFunc(r.schedule, func() { r.runPruning(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("journal retention started",
		"schedule", r.schedule,
		"max_age", r.maxAge,
	)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// RunOnce prunes immediately and returns the number of deleted records.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	return r.store.Prune(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) runPruning(ctx context.Context) {
	deleted, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("journal pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		r.logger.Info("journal pruning completed", "deleted_count", deleted)
	} else {
		r.logger.Debug("journal pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		<-r.cron.Stop().Done()
		r.running = false
		r.logger.Info("journal retention stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (r *Retention) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled prune, or the zero time when stopped.
func (r *Retention) NextRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.cron.Entries()
	if !r.running || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
