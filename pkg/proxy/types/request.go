package types

import (
	"bytes"
	"encoding/json"
	"errors"

	"mercator-hq/relay/pkg/providers"
)

// Message is one conversation turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the body of POST /completions and the first frame of
// a WebSocket session.
//
// Two shapes are accepted: a bare array of messages, with provider and
// model supplied out of band, or an object:
//
//	{"provider": "openai", "model": "gpt-4o", "messages": [...]}
type CompletionRequest struct {
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

// UnmarshalJSON accepts either request shape.
func (r *CompletionRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty request")
	}

	if trimmed[0] == '[' {
		var messages []Message
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return err
		}
		*r = CompletionRequest{Messages: messages}
		return nil
	}

	// alias drops the method set so Unmarshal does not recurse
	type alias CompletionRequest
	var a alias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*r = CompletionRequest(a)
	return nil
}

// ProviderMessages converts the wire messages for the adapter layer. Roles
// are passed through unchecked; the session validates them.
func (r *CompletionRequest) ProviderMessages() []providers.Message {
	out := make([]providers.Message, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = providers.Message{Role: providers.Role(m.Role), Content: m.Content}
	}
	return out
}
