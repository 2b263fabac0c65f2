package openai

import (
	sdk "github.com/openai/openai-go/v3"

	"mercator-hq/relay/pkg/providers"
)

// transformRequest builds SDK params. Roles are already validated.
func transformRequest(model string, messages []providers.Message, maxTokens int) sdk.ChatCompletionNewParams {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)),
	}

	for _, msg := range messages {
		switch msg.Role {
		case providers.RoleSystem:
			params.Messages = append(params.Messages, sdk.SystemMessage(msg.Content))
		case providers.RoleAssistant:
			params.Messages = append(params.Messages, sdk.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, sdk.UserMessage(msg.Content))
		}
	}

	if maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(maxTokens))
	}

	return params
}

// transformStreamChunk maps an SDK chunk. ok is false for chunks without a
// choice (usage trailers).
func transformStreamChunk(chunk *sdk.ChatCompletionChunk) (providers.ChunkEvent, bool) {
	if len(chunk.Choices) == 0 {
		return providers.ChunkEvent{}, false
	}
	choice := chunk.Choices[0]
	return providers.ChunkEvent{
		Content: choice.Delta.Content,
		IsFinal: choice.FinishReason != "",
	}, true
}
