package gemini

import (
	"context"
	"io"

	"google.golang.org/genai"

	"mercator-hq/relay/pkg/providers"
)

// streamReader pulls from the SDK's range-over-func iterator.
type streamReader struct {
	provider string
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	cancel   context.CancelFunc

	pending *genai.GenerateContentResponse
	done    bool
	closed  bool
}

// Recv returns the next chunk carrying text or the final marker.
func (s *streamReader) Recv(ctx context.Context) (providers.ChunkEvent, error) {
	for {
		if s.done || s.closed {
			return providers.ChunkEvent{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return providers.ChunkEvent{}, err
		}

		resp := s.pending
		s.pending = nil
		if resp == nil {
			var err error
			var ok bool
			resp, err, ok = s.next()
			if !ok {
				// The SDK ends the iterator on read errors without reporting
				// them, so a stream with no finish reason was cut short.
				s.done = true
				return providers.ChunkEvent{}, &providers.StreamError{
					Provider: s.provider,
					Message:  "stream ended without a finish reason",
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
		}

		chunk := transformResponse(resp)
		if chunk.IsFinal {
			s.done = true
			return chunk, nil
		}
		if chunk.Content != "" {
			return chunk, nil
		}
	}
}

// Close stops the iterator and aborts the underlying request.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.stop()
	return nil
}
