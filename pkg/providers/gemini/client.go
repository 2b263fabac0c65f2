// Package gemini adapts Google's Gemini API through the genai SDK.
package gemini

import (
	"context"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"mercator-hq/relay/pkg/providers"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Provider is the Gemini provider adapter.
type Provider struct {
	*providers.HTTPProvider

	client *genai.Client
}

// NewProvider creates a new Gemini provider instance. No network call is made.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "gemini",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Gemini",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	base := providers.NewHTTPProvider(config)
	base.SetHealthEndpoint(config.BaseURL+"/v1beta/models", map[string]string{
		"x-goog-api-key": config.APIKey,
	})

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: base.Client(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.BaseURL,
		},
	})
	if err != nil {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "client",
			Message:  err.Error(),
		}
	}

	slog.Info("Gemini provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return &Provider{HTTPProvider: base, client: client}, nil
}

// Open starts a streaming generation. The first response is pulled before
// returning so connection failures surface here rather than on Recv.
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

	contents, genConfig, err := transformRequest(messages, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(streamCtx, model, contents, genConfig))

	s := &streamReader{
		provider: p.Name(),
		next:     next,
		stop:     stop,
		cancel:   cancel,
	}

	resp, err, ok := next()
	if !ok {
		s.Close()
		return nil, &providers.UnavailableError{
			Provider: p.Name(),
			Message:  "empty response stream",
		}
	}
	if err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &providers.UnavailableError{
			Provider: p.Name(),
			Message:  "request failed",
			Cause:    err,
		}
	}

	s.pending = resp
	return s, nil
}

// Close releases the SDK transport and stops health checks.
func (p *Provider) Close() error {
	return p.HTTPProvider.Close()
}
