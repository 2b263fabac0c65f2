// Package registry holds the set of configured provider adapters.
//
// A Registry is built once at startup and never mutated afterwards, so
// Resolve is safe for unlimited concurrent callers without locking.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/relay/pkg/providers"
)

// Registry maps provider names to adapters.
type Registry struct {
	adapters    map[string]providers.Adapter
	names       []string
	defaultName string
}

// Option configures New.
type Option func(*options)

type options struct {
	factory Factory
}

// WithFactory replaces NewAdapter, typically in tests.
func WithFactory(f Factory) Option {
	return func(o *options) { o.factory = f }
}

// New builds every configured adapter. defaultName must be one of them, or
// empty when callers always name a provider. On error every adapter already
// built is closed.
func New(configs []providers.ProviderConfig, defaultName string, opts ...Option) (*Registry, error) {
	o := options{factory: NewAdapter}
	for _, opt := range opts {
		opt(&o)
	}

	adapters := make([]providers.Adapter, 0, len(configs))
	for _, cfg := range configs {
		adapter, err := o.factory(cfg)
		if err != nil {
			closeAll(adapters)
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	r, err := FromAdapters(defaultName, adapters...)
	if err != nil {
		closeAll(adapters)
		return nil, err
	}

	slog.Info("provider registry ready",
		"providers", r.names,
		"default", defaultName,
	)
	return r, nil
}

// FromAdapters builds a registry from already constructed adapters.
func FromAdapters(defaultName string, adapters ...providers.Adapter) (*Registry, error) {
	r := &Registry{
		adapters:    make(map[string]providers.Adapter, len(adapters)),
		defaultName: defaultName,
	}

	for _, a := range adapters {
		name := a.Name()
		if _, dup := r.adapters[name]; dup {
			return nil, &providers.ConfigError{
				Provider: name,
				Field:    "name",
				Message:  "duplicate provider name",
			}
		}
		r.adapters[name] = a
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	if defaultName != "" {
		if _, ok := r.adapters[defaultName]; !ok {
			return nil, &providers.ConfigError{
				Provider: defaultName,
				Field:    "default_provider",
				Message:  "default provider is not configured",
			}
		}
	}

	return r, nil
}

// Resolve returns the adapter registered under name. An empty name resolves
// to the default provider.
func (r *Registry) Resolve(name string) (providers.Adapter, error) {
	if name == "" {
		name = r.defaultName
	}
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, &providers.UnknownProviderError{Name: name}
	}
	return adapter, nil
}

// Default returns the default provider name.
func (r *Registry) Default() string {
	return r.defaultName
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.adapters)
}

// StartHealthChecks starts the background checker of every adapter that
// tracks upstream health. They stop when ctx is cancelled or on Close.
func (r *Registry) StartHealthChecks(ctx context.Context) {
	for _, name := range r.names {
		if hr, ok := r.adapters[name].(providers.HealthReporter); ok {
			hr.StartHealthChecker(ctx)
		} else {
			slog.Debug("provider does not support health checking", "name", name)
		}
	}
}

// Health returns the health of every adapter. In-process adapters without
// health tracking are always reported healthy.
func (r *Registry) Health() HealthSummary {
	summary := HealthSummary{
		Total:   len(r.adapters),
		Details: make(map[string]providers.ProviderHealth, len(r.adapters)),
	}

	for name, adapter := range r.adapters {
		health := providers.ProviderHealth{IsHealthy: true}
		if hr, ok := adapter.(providers.HealthReporter); ok {
			health = hr.Health()
		}
		summary.Details[name] = health
		if health.IsHealthy {
			summary.Healthy++
		}
	}
	summary.Unhealthy = summary.Total - summary.Healthy

	return summary
}

// Close closes every adapter.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.names {
		if err := r.adapters[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	slog.Info("provider registry closed")
	return errors.Join(errs...)
}

// HealthSummary provides an overview of provider health across the registry.
type HealthSummary struct {
	// Total is the total number of providers
	Total int

	// Healthy is the number of healthy providers
	Healthy int

	// Unhealthy is the number of unhealthy providers
	Unhealthy int

	// Details contains per-provider health information
	Details map[string]providers.ProviderHealth
}

func closeAll(adapters []providers.Adapter) {
	for _, a := range adapters {
		_ = a.Close()
	}
}
