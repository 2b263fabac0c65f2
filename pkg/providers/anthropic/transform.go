package anthropic

import (
	"fmt"

	"mercator-hq/relay/pkg/providers"
)

// Request is an Anthropic Messages API request.
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
}

// Message is a message in Anthropic format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEvent is one event in Anthropic's SSE stream. Only the fields the
// gateway needs are decoded.
type StreamEvent struct {
	Type string `json:"type"`

	// For content_block_delta events
	Delta *Delta `json:"delta,omitempty"`

	// For error events
	Error *APIError `json:"error,omitempty"`
}

// Delta carries either text (content_block_delta) or a stop reason
// (message_delta); both arrive under the same "delta" key.
type Delta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// APIError is the payload of an "error" event.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// transformRequest moves system messages to the top-level system field.
// The Messages API requires the first turn to come from the user.
func transformRequest(model string, messages []providers.Message, maxTokens int) (*Request, error) {
	system, turns := providers.SplitSystem(messages)
	if len(turns) == 0 {
		return nil, &providers.ValidationError{
			Field:   "messages",
			Message: "at least one user or assistant message is required",
		}
	}
	if turns[0].Role != providers.RoleUser {
		return nil, &providers.ValidationError{
			Field:   "messages[0].role",
			Message: "first non-system message must be from the user",
		}
	}

	req := &Request{
		Model:     model,
		Messages:  make([]Message, 0, len(turns)),
		System:    system,
		MaxTokens: maxTokens,
		Stream:    true,
	}
	for _, msg := range turns {
		req.Messages = append(req.Messages, Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return req, nil
}

// transformStreamEvent maps one event to a chunk. ok is false for events that
// carry nothing for the client.
func transformStreamEvent(event *StreamEvent) (chunk providers.ChunkEvent, ok bool, err error) {
	switch event.Type {
	case "content_block_delta":
		if event.Delta != nil && event.Delta.Text != "" {
			return providers.ChunkEvent{Content: event.Delta.Text}, true, nil
		}
		return providers.ChunkEvent{}, false, nil

	case "message_stop":
		return providers.ChunkEvent{IsFinal: true}, true, nil

	case "error":
		msg := "upstream reported an error"
		if event.Error != nil {
			msg = fmt.Sprintf("%s: %s", event.Error.Type, event.Error.Message)
		}
		return providers.ChunkEvent{}, false, fmt.Errorf("%s", msg)

	case "message_start", "content_block_start", "content_block_stop", "message_delta", "ping":
		return providers.ChunkEvent{}, false, nil

	default:
		// Newer event types are skipped rather than failing the stream.
		return providers.ChunkEvent{}, false, nil
	}
}
