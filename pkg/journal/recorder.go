package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/session"
)

// DefaultWriteTimeout bounds a single store write.
const DefaultWriteTimeout = 5 * time.Second

// Recorder writes session summaries to a Store from a background worker. It
// implements session.Observer and never blocks the session that reports.
type Recorder struct {
	store        Store
	records      chan Record
	writeTimeout time.Duration
	onDrop       func()
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
}

var _ session.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithDropHandler registers a callback run whenever a record is dropped.
func WithDropHandler(fn func()) RecorderOption {
	return func(r *Recorder) { r.onDrop = fn }
}

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.writeTimeout = d }
}

// NewRecorder starts a recorder with a buffer of bufferSize records.
func NewRecorder(store Store, bufferSize int, opts ...RecorderOption) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	r := &Recorder{
		store:        store,
		records:      make(chan Record, bufferSize),
		writeTimeout: DefaultWriteTimeout,
		logger:       slog.Default().With("component", "journal.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// SessionStarted implements session.Observer.
func (r *Recorder) SessionStarted(session.Info) {}

// SessionEnded implements session.Observer. When the buffer is full the
// record is dropped.
func (r *Recorder) SessionEnded(summary session.Summary) {
	rec := FromSummary(summary)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(rec, "recorder closed")
		return
	}

	select {
	case r.records <- rec:
	default:
		r.drop(rec, "buffer full")
	}
}

func (r *Recorder) drop(rec Record, why string) {
	r.dropped.Add(1)
	r.logger.Warn("dropping journal record",
		"session_id", rec.ID,
		"reason", why,
		"buffer", cap(r.records),
	)
	if r.onDrop != nil {
		r.onDrop()
	}
}

// Dropped returns the number of records dropped so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, writes everything already buffered and
// waits for the worker to exit. It does not close the store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.records)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for rec := range r.records {
		r.write(rec)
	}
}

func (r *Recorder) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.store.Append(ctx, rec); err != nil {
		r.logger.Error("failed to write journal record",
			"session_id", rec.ID,
			"error", err,
		)
		return
	}
	r.logger.Debug("journal record written", "session_id", rec.ID, "state", rec.State)
}
