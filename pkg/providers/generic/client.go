// Package generic adapts any backend that speaks the OpenAI chat completions
// streaming format (vLLM, Ollama, LM Studio, llama.cpp server, ...).
//
// The adapter talks raw SSE over providers.HTTPProvider, so it does not
// depend on vendor-specific SDK behaviour. The API key is optional.
package generic

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// Provider is a generic OpenAI-compatible provider adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new generic OpenAI-compatible provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required for generic provider",
		}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 5
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
	}
	p.SetHealthEndpoint(config.BaseURL+"/models", p.headers())

	slog.Info("generic OpenAI-compatible provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p, nil
}

// Open starts a streaming chat completion.
func (p *Provider) Open(ctx context.Context, model string, messages []providers.Message) (providers.Stream, error) {
	if err := providers.ValidateMessages(messages); err != nil {
		return nil, err
	}

	cfg := p.Config()
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		return nil, &providers.ValidationError{
			Field:   "model",
			Message: "model is required",
		}
	}

	body, err := p.DoStream(ctx, cfg.BaseURL+"/chat/completions", transformRequest(model, messages, cfg.MaxTokens), p.headers())
	if err != nil {
		return nil, err
	}

	return newStreamReader(p.Name(), body), nil
}

func (p *Provider) headers() map[string]string {
	headers := map[string]string{
		"Accept": "text/event-stream",
	}
	if key := p.Config().APIKey; key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return headers
}
