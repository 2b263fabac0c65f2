// Package anthropic adapts Anthropic's Messages API streaming endpoint.
package anthropic

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

const (
	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is the API version to use
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultMaxTokens is sent when the provider config sets none.
	// The Messages API requires max_tokens.
	DefaultMaxTokens = 4096
)

// Provider is the Anthropic provider adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new Anthropic provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
	}
	p.SetHealthEndpoint(config.BaseURL+"/v1/models", map[string]string{
		"x-api-key":         config.APIKey,
		"anthropic-version": DefaultAnthropicVersion,
	})

	slog.Info("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p, nil
}

// Open starts a streaming Messages API call.
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

	req, err := transformRequest(model, messages, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": DefaultAnthropicVersion,
		"Accept":            "text/event-stream",
	}

	body, err := p.DoStream(ctx, cfg.BaseURL+"/v1/messages", req, headers)
	if err != nil {
		return nil, err
	}

	return newStreamReader(p.Name(), body), nil
}
