package journal

import (
	"context"
	"errors"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("journal closed")

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

// Record is the outcome of one session. It never holds message content.
type Record struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id,omitempty"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`

	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	Chunks int   `json:"chunks"`
	Bytes  int64 `json:"bytes"`

	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	FirstChunkMS int64     `json:"first_chunk_ms,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
}

// FromSummary converts a session summary into a record.
func FromSummary(s session.Summary) Record {
	rec := Record{
		ID:           s.ID,
		RequestID:    s.RequestID,
		Provider:     s.Provider,
		Model:        s.Model,
		State:        s.State.String(),
		Reason:       s.Reason.String(),
		ErrorKind:    providers.Kind(s.Err),
		Chunks:       s.Chunks,
		Bytes:        s.Bytes,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		FirstChunkMS: s.TimeToFirstChunk().Milliseconds(),
		DurationMS:   s.Duration().Milliseconds(),
	}
	if s.Err != nil {
		rec.Error = s.Err.Error()
	}
	return rec
}

// Filter selects records for List. Zero fields match everything.
type Filter struct {
	Provider string
	State    string
	Since    time.Time

	// Limit bounds the result. Zero means DefaultListLimit.
	Limit int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) matches(r Record) bool {
	if f.Provider != "" && r.Provider != f.Provider {
		return false
	}
	if f.State != "" && r.State != f.State {
		return false
	}
	if !f.Since.IsZero() && r.EndedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store persists session records.
type Store interface {
	// Append stores one record.
	Append(ctx context.Context, rec Record) error

	// List returns matching records, most recently ended first.
	List(ctx context.Context, filter Filter) ([]Record, error)

	// Prune deletes records that ended before the cutoff and returns how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases the store.
	Close() error
}
