package session

import "time"

// Info describes a session when it starts.
type Info struct {
	ID        string
	RequestID string
	Provider  string
	Model     string
	StartedAt time.Time
}

// Summary describes a session once it reaches a terminal state.
type Summary struct {
	Info

	State  State
	Reason Reason
	Err    error

	// Chunks and Bytes count what the upstream produced.
	Chunks int
	Bytes  int64

	// FirstChunkAt is zero when no chunk arrived.
	FirstChunkAt time.Time
	EndedAt      time.Time
}

// Duration returns the total session lifetime.
func (s Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// TimeToFirstChunk returns the open latency, or zero when no chunk arrived.
func (s Summary) TimeToFirstChunk() time.Duration {
	if s.FirstChunkAt.IsZero() {
		return 0
	}
	return s.FirstChunkAt.Sub(s.StartedAt)
}

// Observer is notified of session lifecycle events. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	SessionStarted(Info)
	SessionEnded(Summary)
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) SessionStarted(info Info) {
	for _, o := range m {
		o.SessionStarted(info)
	}
}

func (m multiObserver) SessionEnded(summary Summary) {
	for _, o := range m {
		o.SessionEnded(summary)
	}
}
