package providers

import (
	"encoding/json"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// TestConfig returns a test provider configuration.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		Model:               "test-model",
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		HealthCheckInterval: time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// UserMessages returns one user message per content string.
func UserMessages(contents ...string) []providers.Message {
	messages := make([]providers.Message, 0, len(contents))
	for _, c := range contents {
		messages = append(messages, providers.Message{Role: providers.RoleUser, Content: c})
	}
	return messages
}

// OpenAIChunk renders an OpenAI-format stream chunk. An empty finishReason
// is encoded as null.
func OpenAIChunk(delta string, finishReason string) SSEFrame {
	var reason any
	if finishReason != "" {
		reason = finishReason
	}
	chunk := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"delta":         map[string]any{"content": delta},
				"finish_reason": reason,
			},
		},
	}
	return SSEFrame{Data: mustJSON(chunk)}
}

// OpenAIDone is the [DONE] terminator frame.
func OpenAIDone() SSEFrame {
	return SSEFrame{Data: "[DONE]"}
}

// OpenAIStream renders a complete stream that emits deltas then finishes.
func OpenAIStream(deltas ...string) []SSEFrame {
	frames := make([]SSEFrame, 0, len(deltas)+2)
	for _, d := range deltas {
		frames = append(frames, OpenAIChunk(d, ""))
	}
	frames = append(frames, OpenAIChunk("", "stop"), OpenAIDone())
	return frames
}

// AnthropicEvent renders a named Anthropic stream event.
func AnthropicEvent(eventType string, data map[string]any) SSEFrame {
	if data == nil {
		data = map[string]any{}
	}
	data["type"] = eventType
	return SSEFrame{Event: eventType, Data: mustJSON(data)}
}

// AnthropicStream renders a complete Messages API stream emitting texts.
func AnthropicStream(texts ...string) []SSEFrame {
	frames := []SSEFrame{
		AnthropicEvent("message_start", map[string]any{
			"message": map[string]any{"id": "msg_123", "model": "claude-test", "role": "assistant"},
		}),
		AnthropicEvent("content_block_start", map[string]any{
			"index":         0,
			"content_block": map[string]any{"type": "text", "text": ""},
		}),
		AnthropicEvent("ping", nil),
	}
	for _, text := range texts {
		frames = append(frames, AnthropicEvent("content_block_delta", map[string]any{
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": text},
		}))
	}
	frames = append(frames,
		AnthropicEvent("content_block_stop", map[string]any{"index": 0}),
		AnthropicEvent("message_delta", map[string]any{
			"delta": map[string]any{"stop_reason": "end_turn"},
			"usage": map[string]any{"output_tokens": len(texts)},
		}),
		AnthropicEvent("message_stop", nil),
	)
	return frames
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
