// Package openai adapts the OpenAI chat completions API through the official
// openai-go SDK. SDK retries are disabled: a failed open is reported as-is.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"mercator-hq/relay/pkg/providers"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is the OpenAI provider adapter. The embedded HTTPProvider supplies
// the pooled transport the SDK runs on, plus health probing.
type Provider struct {
	*providers.HTTPProvider

	client sdk.Client
}

// NewProvider creates a new OpenAI provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	base := providers.NewHTTPProvider(config)
	base.SetHealthEndpoint(config.BaseURL+"/models", map[string]string{
		"Authorization": "Bearer " + config.APIKey,
	})

	p := &Provider{
		HTTPProvider: base,
		client: sdk.NewClient(
			option.WithAPIKey(config.APIKey),
			option.WithBaseURL(config.BaseURL+"/"),
			option.WithHTTPClient(base.Client()),
			option.WithMaxRetries(0),
		),
	}

	slog.Info("OpenAI provider initialized",
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

	stream := p.client.Chat.Completions.NewStreaming(ctx, transformRequest(model, messages, cfg.MaxTokens))
	if err := stream.Err(); err != nil {
		stream.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyOpenError(p.Name(), err)
	}

	return &streamReader{provider: p.Name(), stream: stream}, nil
}

// classifyOpenError turns an SDK failure into an *UnavailableError, keeping
// the HTTP status when the API answered.
func classifyOpenError(provider string, err error) error {
	unavailable := &providers.UnavailableError{
		Provider: provider,
		Message:  "request failed",
		Cause:    err,
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		unavailable.StatusCode = apiErr.StatusCode
		unavailable.Message = http.StatusText(apiErr.StatusCode)
	}
	return unavailable
}
