package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// tracerName identifies session spans when no tracer is supplied.
const tracerName = "mercator-hq/relay/session"

// Request is what a session is opened for.
type Request struct {
	// RequestID correlates the session with the inbound request
	RequestID string

	// Provider is the registry name of the adapter
	Provider string

	// Model is passed to the adapter unchanged
	Model string

	// Messages is the conversation, oldest first
	Messages []providers.Message
}

// Options configures deadlines and instrumentation. Zero timeouts disable the
// corresponding deadline.
type Options struct {
	// OpenTimeout bounds the time from Open until the first chunk
	OpenTimeout time.Duration

	// IdleTimeout bounds the wait for each chunk after the first
	IdleTimeout time.Duration

	// Observer receives lifecycle events, nil to skip
	Observer Observer

	// Tracer creates the session span, nil for the global tracer provider
	Tracer trace.Tracer
}

// Session is one in-flight completion. It owns the upstream stream and the
// cancellation context for its lifetime.
//
// Next must be called from a single goroutine. Cancel, Close, State, Reason,
// Err and Summary are safe from any goroutine.
type Session struct {
	id      string
	req     Request
	adapter providers.Adapter
	opts    Options

	ctx    context.Context
	cancel context.CancelCauseFunc
	span   trace.Span

	// recvMu serializes Recv with closing the stream
	recvMu       sync.Mutex
	stream       providers.Stream
	streamClosed bool

	state  atomic.Int32
	reason atomic.Int32

	// mu guards the fields below
	mu           sync.Mutex
	timer        *time.Timer
	timerGen     uint64
	err          error
	chunks       int
	bytes        int64
	startedAt    time.Time
	firstChunkAt time.Time
	endedAt      time.Time

	closeOnce sync.Once
}

// Open starts a session against adapter and waits for the upstream stream to
// open. On failure the session is returned in its terminal state together
// with the error, so callers can inspect State and Reason.
func Open(ctx context.Context, adapter providers.Adapter, req Request, opts Options) (*Session, error) {
	s := &Session{
		id:        uuid.NewString(),
		req:       req,
		adapter:   adapter,
		opts:      opts,
		startedAt: time.Now(),
	}
	s.state.Store(int32(Opening))

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, s.span = tracer.Start(ctx, "completion.session",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrSessionID, s.id),
			attribute.String(tracing.AttrRequestID, req.RequestID),
		),
	)
	tracing.SetProviderAttributes(s.span, req.Provider, req.Model)

	s.ctx, s.cancel = context.WithCancelCause(ctx)

	if opts.Observer != nil {
		opts.Observer.SessionStarted(s.info())
	}

	slog.Debug("session opening",
		"session_id", s.id,
		"request_id", req.RequestID,
		"provider", req.Provider,
		"model", req.Model,
		"messages", len(req.Messages),
	)

	if err := providers.ValidateMessages(req.Messages); err != nil {
		s.finish(Failed, ReasonNone, err)
		return s, err
	}

	s.arm("open", opts.OpenTimeout)

	stream, err := adapter.Open(s.ctx, req.Model, req.Messages)
	if err != nil {
		if s.ctx.Err() != nil {
			s.finishCancelled()
			return s, s.Err()
		}
		s.finish(Failed, ReasonNone, err)
		return s, err
	}

	s.recvMu.Lock()
	if s.streamClosed {
		// Closed concurrently while the adapter was opening.
		s.recvMu.Unlock()
		_ = stream.Close()
		return s, s.Err()
	}
	s.stream = stream
	s.recvMu.Unlock()

	if !s.state.CompareAndSwap(int32(Opening), int32(Streaming)) {
		return s, s.Err()
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context returns the session context. It is cancelled once the session ends.
func (s *Session) Context() context.Context { return s.ctx }

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Reason returns why the session was cancelled, or ReasonNone.
func (s *Session) Reason() Reason { return Reason(s.reason.Load()) }

// Err returns the terminal error, nil while running or after completion.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next returns the next chunk. It returns io.EOF once the session has
// completed and the terminal error after Failed or Cancelled.
func (s *Session) Next() (providers.ChunkEvent, error) {
	switch s.State() {
	case Completed:
		return providers.ChunkEvent{}, io.EOF
	case Failed, Cancelled:
		return providers.ChunkEvent{}, s.Err()
	case Opening:
		return providers.ChunkEvent{}, errors.New("session is not open")
	}

	s.mu.Lock()
	started := !s.firstChunkAt.IsZero()
	s.mu.Unlock()
	if started {
		s.arm("idle", s.opts.IdleTimeout)
	}

	chunk, err := s.recv()

	s.mu.Lock()
	if err == nil && s.firstChunkAt.IsZero() {
		s.firstChunkAt = time.Now()
		s.span.AddEvent("first_chunk")
	}
	if !s.firstChunkAt.IsZero() {
		s.stopTimerLocked()
	}
	if err == nil {
		s.chunks++
		s.bytes += int64(len(chunk.Content))
	}
	s.mu.Unlock()

	if err != nil {
		switch {
		case s.ctx.Err() != nil:
			s.finishCancelled()
			return providers.ChunkEvent{}, s.Err()
		case errors.Is(err, io.EOF):
			s.finish(Completed, ReasonNone, nil)
			return providers.ChunkEvent{}, io.EOF
		default:
			s.finish(Failed, ReasonNone, err)
			return providers.ChunkEvent{}, err
		}
	}

	if chunk.IsFinal {
		s.finish(Completed, ReasonNone, nil)
	}
	return chunk, nil
}

func (s *Session) recv() (providers.ChunkEvent, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	if s.streamClosed {
		return providers.ChunkEvent{}, ErrClosed
	}
	return s.stream.Recv(s.ctx)
}

// Cancel cancels the session context. The session becomes Cancelled with
// the given reason when the pending Next or Open observes it, or on Close.
// Only the first cancellation cause is kept.
func (s *Session) Cancel(reason Reason) {
	s.cancel(causeFor(reason))
}

// Close releases the upstream stream and ends the session. A session still
// running is marked Cancelled. Close is idempotent.
func (s *Session) Close() error {
	if !s.State().Terminal() {
		s.cancel(ErrClosed)
		s.finishCancelled()
		return nil
	}

	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopTimerLocked()
		s.mu.Unlock()

		// Cancel first so a pending Recv returns and releases recvMu.
		s.cancel(ErrClosed)

		s.recvMu.Lock()
		s.streamClosed = true
		if s.stream != nil {
			err = s.stream.Close()
		}
		s.recvMu.Unlock()

		s.end()
	})
	return err
}

// Summary returns a snapshot of the session counters.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Info:         s.info(),
		State:        s.State(),
		Reason:       s.Reason(),
		Err:          s.err,
		Chunks:       s.chunks,
		Bytes:        s.bytes,
		FirstChunkAt: s.firstChunkAt,
		EndedAt:      s.endedAt,
	}
}

func (s *Session) info() Info {
	return Info{
		ID:        s.id,
		RequestID: s.req.RequestID,
		Provider:  s.req.Provider,
		Model:     s.req.Model,
		StartedAt: s.startedAt,
	}
}

// finish moves the session into a terminal state exactly once and releases
// its resources.
func (s *Session) finish(state State, reason Reason, err error) {
	s.mu.Lock()
	if s.State().Terminal() {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.reason.Store(int32(reason))
	s.endedAt = time.Now()
	s.state.Store(int32(state))
	s.mu.Unlock()

	_ = s.Close()
}

// finishCancelled records the context cause as the terminal error.
func (s *Session) finishCancelled() {
	cause := context.Cause(s.ctx)
	if cause == nil {
		cause = context.Canceled
	}
	s.finish(Cancelled, reasonFor(cause), cause)
}

// arm starts a deadline that cancels the session with a timeout cause. It
// replaces any running deadline.
func (s *Session) arm(phase string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	if d <= 0 {
		return
	}

	gen := s.timerGen
	cause := &providers.TimeoutError{Provider: s.req.Provider, Phase: phase, Timeout: d}
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		stale := gen != s.timerGen
		s.mu.Unlock()
		if !stale {
			s.cancel(cause)
		}
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// end records the span outcome, logs, and notifies the observer.
func (s *Session) end() {
	summary := s.Summary()

	s.span.SetAttributes(
		attribute.String(tracing.AttrSessionState, summary.State.String()),
		attribute.String(tracing.AttrSessionReason, summary.Reason.String()),
		attribute.Int(tracing.AttrChunks, summary.Chunks),
	)
	if summary.State == Failed {
		tracing.SetError(s.span, summary.Err)
		tracing.SetStatus(s.span, summary.Err)
	} else {
		tracing.SetStatus(s.span, nil)
	}
	s.span.End()

	attrs := []any{
		"session_id", summary.ID,
		"request_id", summary.RequestID,
		"provider", summary.Provider,
		"model", summary.Model,
		"state", summary.State.String(),
		"chunks", summary.Chunks,
		"bytes", summary.Bytes,
		"duration", summary.Duration(),
	}
	switch summary.State {
	case Failed:
		slog.Warn("session failed", append(attrs, "error", summary.Err)...)
	case Cancelled:
		slog.Info("session cancelled", append(attrs, "reason", summary.Reason.String())...)
	default:
		slog.Debug("session completed", append(attrs, "ttfb", summary.TimeToFirstChunk())...)
	}

	if s.opts.Observer != nil {
		s.opts.Observer.SessionEnded(summary)
	}
}
