package generic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mercator-hq/relay/pkg/providers"
)

// streamReader reads an OpenAI-format SSE stream.
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

// Recv returns the next chunk with content or the final marker.
// Returns io.EOF after [DONE] or when the body ends.
func (s *streamReader) Recv(ctx context.Context) (providers.ChunkEvent, error) {
	if s.done {
		return providers.ChunkEvent{}, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return providers.ChunkEvent{}, err
		}

		event, err := s.sse.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			return providers.ChunkEvent{}, io.EOF
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

		if event.Data == "" {
			continue
		}
		if event.Data == "[DONE]" {
			s.done = true
			return providers.ChunkEvent{}, io.EOF
		}

		var resp StreamResponse
		if err := json.Unmarshal([]byte(event.Data), &resp); err != nil {
			return providers.ChunkEvent{}, &providers.ParseError{
				Provider:    s.provider,
				RawResponse: event.Data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}
		if resp.Error != nil {
			return providers.ChunkEvent{}, &providers.StreamError{
				Provider: s.provider,
				Message:  resp.Error.Message,
			}
		}

		chunk, ok := transformStreamChunk(&resp)
		if !ok {
			// Usage-only trailer
			continue
		}
		if chunk.Content == "" && !chunk.IsFinal {
			// Role-only preamble
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
	return s.sse.Close()
}
