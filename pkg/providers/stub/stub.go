// Package stub provides deterministic in-process adapters. They back the
// "echo" and "fail" provider types used for smoke tests and local runs.
package stub

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Adapter types served by this package.
const (
	TypeEcho = "echo"
	TypeFail = "fail"
)

// DefaultChunks are emitted when no chunks are configured.
var DefaultChunks = []string{"He", "llo", "!"}

// ErrInjected is the upstream I/O failure raised by fail adapters.
var ErrInjected = errors.New("injected upstream i/o error")

// Adapter emits a fixed chunk sequence.
type Adapter struct {
	config providers.ProviderConfig

	opens  atomic.Int64
	active atomic.Int64
}

// New creates a stub adapter. For TypeFail a zero FailAfter means one chunk
// is sent before the error and a negative one fails before the first chunk;
// for TypeEcho FailAfter is ignored.
func New(config providers.ProviderConfig) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: config.Type,
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	switch config.Type {
	case TypeEcho:
		config.Stub.FailAfter = -1
	case TypeFail:
		switch {
		case config.Stub.FailAfter == 0:
			config.Stub.FailAfter = 1
		case config.Stub.FailAfter < 0:
			config.Stub.FailAfter = 0
		}
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  "stub adapter type must be echo or fail",
		}
	}

	if len(config.Stub.Chunks) == 0 {
		config.Stub.Chunks = DefaultChunks
	}

	return &Adapter{config: config}, nil
}

// Name returns the provider's configured name.
func (a *Adapter) Name() string { return a.config.Name }

// Type returns echo or fail.
func (a *Adapter) Type() string { return a.config.Type }

// Opens reports how many streams have been opened.
func (a *Adapter) Opens() int64 { return a.opens.Load() }

// Active reports how many opened streams are not yet closed.
func (a *Adapter) Active() int64 { return a.active.Load() }

// Open validates messages and returns a stream over the configured chunks.
func (a *Adapter) Open(ctx context.Context, model string, messages []providers.Message) (providers.Stream, error) {
	if err := providers.ValidateMessages(messages); err != nil {
		return nil, err
	}

	if err := sleep(ctx, a.config.Stub.OpenDelay); err != nil {
		return nil, err
	}

	a.opens.Add(1)
	a.active.Add(1)

	return &stream{
		adapter: a,
		chunks:  a.config.Stub.Chunks,
	}, nil
}

// Close is a no-op.
func (a *Adapter) Close() error { return nil }

type stream struct {
	adapter *Adapter
	chunks  []string
	sent    int

	closeOnce sync.Once
}

func (s *stream) Recv(ctx context.Context) (providers.ChunkEvent, error) {
	cfg := s.adapter.config.Stub

	if cfg.FailAfter >= 0 && s.sent >= cfg.FailAfter {
		return providers.ChunkEvent{}, &providers.StreamError{
			Provider: s.adapter.config.Name,
			Message:  "read failed",
			Cause:    ErrInjected,
		}
	}
	if s.sent >= len(s.chunks) {
		return providers.ChunkEvent{}, io.EOF
	}

	if err := sleep(ctx, cfg.ChunkDelay); err != nil {
		return providers.ChunkEvent{}, err
	}

	chunk := providers.ChunkEvent{Content: s.chunks[s.sent]}
	s.sent++
	if cfg.FailAfter < 0 && s.sent == len(s.chunks) {
		chunk.IsFinal = true
	}
	return chunk, nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.adapter.active.Add(-1)
	})
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
