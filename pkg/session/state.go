package session

import (
	"context"
	"errors"

	"mercator-hq/relay/pkg/providers"
)

// State is the lifecycle position of a session.
type State int32

const (
	// Opening means the adapter is establishing the upstream stream.
	Opening State = iota
	// Streaming means the upstream stream is open and chunks are flowing.
	Streaming
	// Completed means the upstream marked the end of the stream.
	Completed
	// Failed means the upstream could not be opened or broke mid-stream.
	Failed
	// Cancelled means the session context was cancelled. See Reason.
	Cancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= Completed
}

// Reason explains a Cancelled state.
type Reason int32

const (
	ReasonNone Reason = iota
	ReasonClientGone
	ReasonTimeout
	ReasonShutdown
)

// String returns the reason name used in logs and metrics labels.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonClientGone:
		return "client_gone"
	case ReasonTimeout:
		return "timeout"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Cancellation causes.
var (
	// ErrClientGone is the cause when the client disconnected.
	ErrClientGone = errors.New("client disconnected")

	// ErrShutdown is the cause when the process is shutting down.
	ErrShutdown = errors.New("server shutting down")

	// ErrClosed is the cause when a session is closed before reaching a
	// terminal state.
	ErrClosed = errors.New("session closed")
)

// causeFor returns the cancellation cause recorded for reason.
func causeFor(reason Reason) error {
	switch reason {
	case ReasonTimeout:
		return providers.ErrTimeout
	case ReasonShutdown:
		return ErrShutdown
	default:
		return ErrClientGone
	}
}

// reasonFor classifies a context cause. Anything that is not a deadline or
// a shutdown means the consumer went away.
func reasonFor(cause error) Reason {
	switch {
	case errors.Is(cause, providers.ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(cause, ErrShutdown):
		return ReasonShutdown
	default:
		return ReasonClientGone
	}
}
