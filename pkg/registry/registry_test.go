package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/stub"
)

func stubConfigs() []providers.ProviderConfig {
	return []providers.ProviderConfig{
		{Name: "test-echo", Type: TypeEcho},
		{Name: "test-fail-mid", Type: TypeFail},
	}
}

func TestNew(t *testing.T) {
	r, err := New(stubConfigs(), "test-echo")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "test-echo" || names[1] != "test-fail-mid" {
		t.Errorf("Names() = %v, want sorted [test-echo test-fail-mid]", names)
	}
	if r.Default() != "test-echo" {
		t.Errorf("Default() = %q, want test-echo", r.Default())
	}
}

func TestResolve(t *testing.T) {
	r, err := New(stubConfigs(), "test-echo")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()

	tests := []struct {
		name     string
		provider string
		want     string
		wantErr  error
	}{
		{"registered name", "test-fail-mid", "test-fail-mid", nil},
		{"empty name resolves default", "", "test-echo", nil},
		{"unknown name", "test-missing", "", providers.ErrUnknownProvider},
		{"names are case sensitive", "TEST-ECHO", "", providers.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := r.Resolve(tt.provider)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.provider, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.provider, err)
			}
			if adapter.Name() != tt.want {
				t.Errorf("Resolve(%q).Name() = %q, want %q", tt.provider, adapter.Name(), tt.want)
			}
		})
	}
}

// TestResolveUnknownMakesNoCall verifies an unknown name fails before any
// adapter is touched.
func TestResolveUnknownMakesNoCall(t *testing.T) {
	echo, _ := stub.New(providers.ProviderConfig{Name: "test-echo", Type: TypeEcho})
	r, err := FromAdapters("", echo)
	if err != nil {
		t.Fatalf("FromAdapters() error = %v", err)
	}

	if _, err := r.Resolve("nope"); !errors.Is(err, providers.ErrUnknownProvider) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownProvider", err)
	}
	if echo.Opens() != 0 {
		t.Errorf("Opens() = %d, want 0", echo.Opens())
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name        string
		configs     []providers.ProviderConfig
		defaultName string
		wantField   string
	}{
		{
			name:      "unsupported type",
			configs:   []providers.ProviderConfig{{Name: "x", Type: "cohere"}},
			wantField: "type",
		},
		{
			name:      "duplicate name",
			configs:   []providers.ProviderConfig{{Name: "x", Type: TypeEcho}, {Name: "x", Type: TypeFail}},
			wantField: "name",
		},
		{
			name:        "default not configured",
			configs:     stubConfigs(),
			defaultName: "openai",
			wantField:   "default_provider",
		},
		{
			name:      "adapter rejects config",
			configs:   []providers.ProviderConfig{{Name: "oa", Type: TypeOpenAI}},
			wantField: "api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.configs, tt.defaultName)
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("New() error = %v, want *providers.ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestNew_ClosesBuiltAdaptersOnError(t *testing.T) {
	var closed []string
	factory := func(cfg providers.ProviderConfig) (providers.Adapter, error) {
		if cfg.Type == "bad" {
			return nil, &providers.ConfigError{Provider: cfg.Name, Field: "type", Message: "bad"}
		}
		return &closeRecorder{name: cfg.Name, closed: &closed}, nil
	}

	_, err := New([]providers.ProviderConfig{
		{Name: "a", Type: "ok"},
		{Name: "b", Type: "bad"},
	}, "", WithFactory(factory))
	if err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if len(closed) != 1 || closed[0] != "a" {
		t.Errorf("closed = %v, want [a]", closed)
	}
}

func TestHealth(t *testing.T) {
	unhealthy := &healthStub{name: "down", health: providers.ProviderHealth{IsHealthy: false}}
	echo, _ := stub.New(providers.ProviderConfig{Name: "test-echo", Type: TypeEcho})

	r, err := FromAdapters("test-echo", echo, unhealthy)
	if err != nil {
		t.Fatalf("FromAdapters() error = %v", err)
	}

	summary := r.Health()
	if summary.Total != 2 || summary.Healthy != 1 || summary.Unhealthy != 1 {
		t.Errorf("summary = %+v, want total 2 healthy 1 unhealthy 1", summary)
	}
	if summary.Details["down"].IsHealthy {
		t.Error("down reported healthy")
	}

	r.StartHealthChecks(context.Background())
	if !unhealthy.started {
		t.Error("StartHealthChecks did not start the reporter")
	}
}

// TestConcurrentResolve exercises lock-free reads under the race detector.
func TestConcurrentResolve(t *testing.T) {
	r, err := New(stubConfigs(), "test-echo")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "test-echo"
			if i%2 == 1 {
				name = "test-fail-mid"
			}
			if _, err := r.Resolve(name); err != nil {
				t.Errorf("Resolve(%q) error = %v", name, err)
			}
		}(i)
	}
	wg.Wait()
}

type closeRecorder struct {
	name   string
	closed *[]string
}

func (c *closeRecorder) Open(context.Context, string, []providers.Message) (providers.Stream, error) {
	return nil, errors.New("not implemented")
}
func (c *closeRecorder) Name() string { return c.name }
func (c *closeRecorder) Type() string { return "ok" }
func (c *closeRecorder) Close() error {
	*c.closed = append(*c.closed, c.name)
	return nil
}

type healthStub struct {
	closeRecorder
	name    string
	health  providers.ProviderHealth
	started bool
}

func (h *healthStub) Name() string                       { return h.name }
func (h *healthStub) Close() error                       { return nil }
func (h *healthStub) Health() providers.ProviderHealth   { return h.health }
func (h *healthStub) StartHealthChecker(context.Context) { h.started = true }
