package config

import (
	"sort"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Config is the root configuration structure for the relay gateway.
type Config struct {
	// EnvFile is a dotenv file loaded before ${VAR} expansion. Relative
	// paths resolve against the directory of the config file.
	// Default: ".env" (ignored when missing)
	EnvFile string `yaml:"env_file"`

	// Watch reloads the log level when the config file changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// Proxy contains HTTP server configuration including listen address,
	// timeouts, and request limits.
	Proxy ProxyConfig `yaml:"proxy"`

	// Gateway contains session defaults: provider and model selection and
	// the open and idle deadlines.
	Gateway GatewayConfig `yaml:"gateway"`

	// Providers contains one entry per upstream. Keys are the names clients
	// use to select a provider (e.g., "openai", "test-echo").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Journal contains configuration for the session outcome journal.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS configuration for the listener.
	Security SecurityConfig `yaml:"security"`
}

// ProxyConfig contains configuration for the HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// WriteTimeout bounds a single chunk write to the client. It is applied
	// per write, never to the whole response, since streams may run long.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long in-flight sessions may drain before they
	// are cancelled with a shutdown cause.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the request body. Larger bodies get 413.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ContentType is the streamed response content type.
	// Options: "text/event-stream", "text/plain"
	// Default: "text/event-stream"
	ContentType string `yaml:"content_type"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// GatewayConfig contains session defaults.
type GatewayConfig struct {
	// DefaultProvider is used when a request names no provider. When only
	// one provider is configured it becomes the default.
	DefaultProvider string `yaml:"default_provider"`

	// DefaultModel is used when neither the request nor the provider entry
	// names a model.
	DefaultModel string `yaml:"default_model"`

	// OpenTimeout bounds the time from session open until the first chunk.
	// Zero disables the deadline.
	// Default: 30s
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// IdleTimeout bounds the wait between successive chunks.
	// Zero disables the deadline.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// ProviderConfig contains configuration for a single upstream.
type ProviderConfig struct {
	// Type selects the adapter.
	// Options: "openai", "anthropic", "gemini", "generic", "echo", "fail"
	Type string `yaml:"type"`

	// Model is the default model for this provider.
	Model string `yaml:"model"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider.
	// Usually injected with ${VAR} expansion or RELAY_PROVIDER_<NAME>_API_KEY.
	APIKey string `yaml:"api_key"`

	// Timeout bounds connecting and waiting for response headers.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens caps the completion length where the API requires it.
	MaxTokens int `yaml:"max_tokens"`

	// HealthCheckInterval is how often the upstream is probed.
	// Default: 30s
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle connections after this duration.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// Chunks are emitted by echo and fail providers.
	// Default: ["He", "llo", "!"]
	Chunks []string `yaml:"chunks"`

	// FailAfter is how many chunks a fail provider emits before erroring.
	// A negative value fails before the first chunk.
	// Default: 1
	FailAfter int `yaml:"fail_after"`

	// ChunkDelay is the pause before each stub chunk.
	ChunkDelay time.Duration `yaml:"chunk_delay"`

	// OpenDelay is the pause before a stub stream opens.
	OpenDelay time.Duration `yaml:"open_delay"`
}

// JournalConfig contains configuration for the session journal.
type JournalConfig struct {
	// Enabled controls whether session outcomes are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// BufferSize is the capacity of the asynchronous write queue. Records
	// are dropped when it is full.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// Memory contains in-memory store configuration.
	Memory MemoryJournalConfig `yaml:"memory"`

	// SQLite contains SQLite store configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// MemoryJournalConfig contains in-memory journal configuration.
type MemoryJournalConfig struct {
	// Capacity is the number of most recent records kept.
	// Default: 1000
	Capacity int `yaml:"capacity"`
}

// SQLiteConfig contains SQLite journal configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the connection pool size.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains journal pruning configuration.
type RetentionConfig struct {
	// MaxAge is how long records are kept. Zero keeps records forever.
	// Default: 168h (7 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a cron expression for pruning runs.
	// Default: "@hourly"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credential-like attributes in log entries.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// File enables a rotating log file in addition to stderr.
	File LogFileConfig `yaml:"file"`
}

// LogFileConfig contains rotating log file configuration.
type LogFileConfig struct {
	// Path is the log file. Empty disables the file sink.
	Path string `yaml:"path"`

	// MaxSizeMB is the size at which the file is rotated.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	// Default: 3
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `yaml:"compress"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for session duration (seconds).
	// Default: [0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120]
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// FirstChunkBuckets defines histogram buckets for time to first chunk (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	FirstChunkBuckets []float64 `yaml:"first_chunk_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "relay"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS contains TLS configuration for the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled controls whether the listener serves TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the TLS certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the TLS private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. Renewed certificates are picked up without a restart.
	// Zero disables reloading.
	// Default: 1m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// ProviderNames returns the configured provider names in sorted order.
func (c *Config) ProviderNames() []string {
	return sortedKeys(c.Providers)
}

// AdapterConfigs converts the provider entries into adapter configurations,
// sorted by name.
func (c *Config) AdapterConfigs() []providers.ProviderConfig {
	out := make([]providers.ProviderConfig, 0, len(c.Providers))
	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		out = append(out, providers.ProviderConfig{
			Name:                name,
			Type:                p.Type,
			Model:               p.Model,
			BaseURL:             p.BaseURL,
			APIKey:              p.APIKey,
			Timeout:             p.Timeout,
			MaxTokens:           p.MaxTokens,
			HealthCheckInterval: p.HealthCheckInterval,
			MaxIdleConns:        p.MaxIdleConns,
			MaxIdleConnsPerHost: p.MaxIdleConnsPerHost,
			IdleConnTimeout:     p.IdleConnTimeout,
			Stub: providers.StubOptions{
				Chunks:     p.Chunks,
				FailAfter:  p.FailAfter,
				ChunkDelay: p.ChunkDelay,
				OpenDelay:  p.OpenDelay,
			},
		})
	}
	return out
}

// ResolveModel picks the model for a request: the requested one, then the
// provider's configured model, then the gateway default.
func (c *Config) ResolveModel(provider, requested string) string {
	if requested != "" {
		return requested
	}
	if p, ok := c.Providers[provider]; ok && p.Model != "" {
		return p.Model
	}
	return c.Gateway.DefaultModel
}

// sortedKeys returns map keys in sorted order so output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
