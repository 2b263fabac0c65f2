package registry

import (
	"fmt"
	"log/slog"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/anthropic"
	"mercator-hq/relay/pkg/providers/gemini"
	"mercator-hq/relay/pkg/providers/generic"
	"mercator-hq/relay/pkg/providers/openai"
	"mercator-hq/relay/pkg/providers/stub"
)

// Supported adapter types.
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeGemini    = "gemini"
	TypeGeneric   = "generic"
	TypeEcho      = stub.TypeEcho
	TypeFail      = stub.TypeFail
)

// SupportedTypes lists every adapter type NewAdapter accepts.
var SupportedTypes = []string{TypeOpenAI, TypeAnthropic, TypeGemini, TypeGeneric, TypeEcho, TypeFail}

// Factory builds an adapter from its configuration.
type Factory func(config providers.ProviderConfig) (providers.Adapter, error)

// NewAdapter creates an adapter instance based on config.Type.
//
// Supported provider types:
//   - "openai": OpenAI API via the official SDK
//   - "anthropic": Anthropic Messages API
//   - "gemini": Google Gemini API via the genai SDK
//   - "generic": OpenAI-compatible APIs (Ollama, LM Studio, vLLM, etc.)
//   - "echo", "fail": deterministic in-process stubs
func NewAdapter(config providers.ProviderConfig) (providers.Adapter, error) {
	slog.Debug("creating provider",
		"name", config.Name,
		"type", config.Type,
		"base_url", config.BaseURL,
	)

	var adapter providers.Adapter
	var err error

	switch config.Type {
	case TypeOpenAI:
		adapter, err = openai.NewProvider(config)
	case TypeAnthropic:
		adapter, err = anthropic.NewProvider(config)
	case TypeGemini:
		adapter, err = gemini.NewProvider(config)
	case TypeGeneric:
		adapter, err = generic.NewProvider(config)
	case TypeEcho, TypeFail:
		adapter, err = stub.New(config)
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: %v)", config.Type, SupportedTypes),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}

	slog.Info("provider created",
		"name", config.Name,
		"type", config.Type,
	)

	return adapter, nil
}
