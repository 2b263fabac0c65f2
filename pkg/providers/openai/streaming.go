package openai

import (
	"context"
	"io"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"mercator-hq/relay/pkg/providers"
)

// streamReader adapts the SDK's SSE stream.
type streamReader struct {
	provider string
	stream   *ssestream.Stream[sdk.ChatCompletionChunk]
	done     bool
	closed   bool
}

// Recv returns the next chunk carrying content or the final marker.
func (s *streamReader) Recv(ctx context.Context) (providers.ChunkEvent, error) {
	if s.done || s.closed {
		return providers.ChunkEvent{}, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return providers.ChunkEvent{}, err
		}

		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				if ctx.Err() != nil {
					return providers.ChunkEvent{}, ctx.Err()
				}
				return providers.ChunkEvent{}, &providers.StreamError{
					Provider: s.provider,
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			s.done = true
			return providers.ChunkEvent{}, io.EOF
		}

		current := s.stream.Current()
		chunk, ok := transformStreamChunk(&current)
		if !ok || (chunk.Content == "" && !chunk.IsFinal) {
			continue
		}
		if chunk.IsFinal {
			s.done = true
		}
		return chunk, nil
	}
}

// Close closes the stream and releases the upstream connection.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}
