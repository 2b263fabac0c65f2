// Package responder pumps chunks from a completion session to a client
// transport.
//
// The responder pulls one chunk, writes it, and only then pulls the next.
// A slow client therefore slows the upstream read instead of growing a
// buffer; the transport's write deadline bounds how long that can last.
package responder

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/relay/pkg/session"
)

// Transport delivers chunks to one client.
type Transport interface {
	// WriteChunk writes and flushes one chunk.
	WriteChunk(content string) error

	// Fail reports a structured error. It is only called when no chunk has
	// been written.
	Fail(err error)

	// Finish ends the stream. A non-nil err ends it without an in-band
	// error, since the client has already received part of the reply.
	Finish(err error)

	// Done is closed when the client goes away.
	Done() <-chan struct{}
}

// Options configures a Responder.
type Options struct {
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Responder serves sessions to transports. It holds no per-request state
// and is safe for concurrent use.
type Responder struct {
	logger *slog.Logger
}

// New creates a Responder.
func New(opts Options) *Responder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{logger: logger}
}

// Result describes what reached the client.
type Result struct {
	// Chunks and Bytes count what was written to the transport.
	Chunks int
	Bytes  int64

	State  session.State
	Reason session.Reason
	Err    error
}

// Serve streams sess to t until the session ends or the client goes away.
// It always closes sess. A session that already failed in Open is reported
// through t.Fail.
func (r *Responder) Serve(ctx context.Context, sess *session.Session, t Transport) Result {
	defer sess.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-t.Done():
			sess.Cancel(session.ReasonClientGone)
		case <-ctx.Done():
			reason := session.ReasonClientGone
			if errors.Is(context.Cause(ctx), session.ErrShutdown) {
				reason = session.ReasonShutdown
			}
			sess.Cancel(reason)
		case <-stop:
		}
	}()

	var res Result
	for {
		chunk, err := sess.Next()
		if err != nil {
			break
		}
		if chunk.Content == "" {
			continue
		}

		if err := t.WriteChunk(chunk.Content); err != nil {
			r.logger.DebugContext(ctx, "client write failed",
				"session_id", sess.ID(),
				"chunks_written", res.Chunks,
				"error", err,
			)
			sess.Cancel(session.ReasonClientGone)
			break
		}
		res.Chunks++
		res.Bytes += int64(len(chunk.Content))
	}

	// Settles a session left streaming by a failed write.
	_ = sess.Close()

	res.State = sess.State()
	res.Reason = sess.Reason()
	res.Err = sess.Err()

	switch {
	case res.State == session.Completed:
		t.Finish(nil)
	case res.Chunks == 0:
		t.Fail(res.Err)
	default:
		t.Finish(res.Err)
	}

	return res
}
