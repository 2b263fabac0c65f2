package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mercator-hq/relay/pkg/providers"
)

// streamReader reads Server-Sent Events (SSE) from Anthropic's streaming API.
type streamReader struct {
	provider string
	sse      *providers.SSEReader
	done     bool
}

func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	return &streamReader{
		provider: provider,
		sse:      providers.NewSSEReader(body),
	}
}

// Recv reads the next chunk from the stream.
// Returns io.EOF after message_stop has been delivered.
func (s *streamReader) Recv(ctx context.Context) (providers.ChunkEvent, error) {
	if s.done {
		return providers.ChunkEvent{}, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return providers.ChunkEvent{}, err
		}

		sse, err := s.sse.Next()
		if errors.Is(err, io.EOF) {
			// Body ended without message_stop: the upstream went away.
			return providers.ChunkEvent{}, &providers.StreamError{
				Provider: s.provider,
				Message:  "stream ended before message_stop",
				Cause:    io.ErrUnexpectedEOF,
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return providers.ChunkEvent{}, ctx.Err()
			}
			return providers.ChunkEvent{}, &providers.StreamError{
				Provider: s.provider,
				Message:  "failed to read stream",
				Cause:    err,
			}
		}

		if sse.Data == "" {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(sse.Data), &event); err != nil {
			return providers.ChunkEvent{}, &providers.ParseError{
				Provider:    s.provider,
				RawResponse: sse.Data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
		if event.Type == "" {
			event.Type = sse.Event
		}

		chunk, ok, err := transformStreamEvent(&event)
		if err != nil {
			return providers.ChunkEvent{}, &providers.StreamError{
				Provider: s.provider,
				Message:  err.Error(),
			}
		}
		if !ok {
			continue
		}
		if chunk.IsFinal {
			s.done = true
		}
		return chunk, nil
	}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	return s.sse.Close()
}
