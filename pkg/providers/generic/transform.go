package generic

import "mercator-hq/relay/pkg/providers"

// ChatRequest is an OpenAI-format chat completion request.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream"`
}

// ChatMessage is a message in OpenAI format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamResponse is one chunk of an OpenAI-format SSE stream.
type StreamResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Error   *APIError      `json:"error,omitempty"`
}

// StreamChoice is a choice in a stream chunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta is the incremental message content.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// APIError is an in-stream error object. Some servers report failures this
// way after the 200 status has been sent.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func transformRequest(model string, messages []providers.Message, maxTokens int) *ChatRequest {
	req := &ChatRequest{
		Model:     model,
		Messages:  make([]ChatMessage, 0, len(messages)),
		MaxTokens: maxTokens,
		Stream:    true,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return req
}

// transformStreamChunk returns the delta text and whether the choice finished.
func transformStreamChunk(resp *StreamResponse) (providers.ChunkEvent, bool) {
	if len(resp.Choices) == 0 {
		return providers.ChunkEvent{}, false
	}
	choice := resp.Choices[0]
	finished := choice.FinishReason != nil && *choice.FinishReason != ""
	return providers.ChunkEvent{
		Content: choice.Delta.Content,
		IsFinal: finished,
	}, true
}
