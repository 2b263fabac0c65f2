package gemini

import (
	"google.golang.org/genai"

	"mercator-hq/relay/pkg/providers"
)

// transformRequest maps messages to genai contents. System messages become
// the system instruction; assistant turns use the "model" role.
func transformRequest(messages []providers.Message, maxTokens int) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, turns := providers.SplitSystem(messages)
	if len(turns) == 0 {
		return nil, nil, &providers.ValidationError{
			Field:   "messages",
			Message: "at least one user or assistant message is required",
		}
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		role := genai.RoleUser
		if msg.Role == providers.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	return contents, config, nil
}

// transformResponse extracts visible text, skipping thought parts, and
// reports whether the candidate finished.
func transformResponse(resp *genai.GenerateContentResponse) providers.ChunkEvent {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return providers.ChunkEvent{}
	}

	candidate := resp.Candidates[0]
	var chunk providers.ChunkEvent
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			chunk.Content += part.Text
		}
	}
	chunk.IsFinal = candidate.FinishReason != ""
	return chunk
}
