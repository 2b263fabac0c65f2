package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
//
// The dotenv file named by env_file is loaded first, then ${VAR} references
// in the file are expanded, the YAML is decoded on top of Default, and the
// result is validated. Environment overrides are not applied; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// RELAY_* environment variable overrides. Environment variables always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load the dotenv file
// 2. Load YAML from file on top of the defaults
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults without touching the
// environment or the filesystem.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := loadEnvFile(path, data); err != nil {
		return nil, err
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// loadEnvFile loads the dotenv file referenced by the config, if it exists.
// Variables already set in the environment win.
func loadEnvFile(configPath string, data []byte) error {
	var head struct {
		EnvFile *string `yaml:"env_file"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("failed to parse configuration file %q: %w", configPath, err)
	}

	envFile := DefaultEnvFile
	if head.EnvFile != nil {
		envFile = *head.EnvFile
	}
	if envFile == "" {
		return nil
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(filepath.Dir(configPath), envFile)
	}

	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", envFile, err)
	}
	slog.Debug("loaded env file", "path", envFile)
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvPrefix + "LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv(EnvPrefix + "DEFAULT_PROVIDER"); val != "" {
		cfg.Gateway.DefaultProvider = val
	}
	if val := os.Getenv(EnvPrefix + "DEFAULT_MODEL"); val != "" {
		cfg.Gateway.DefaultModel = val
	}
	if val := os.Getenv(EnvPrefix + "OPEN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.OpenTimeout = d
		} else {
			slog.Warn("ignoring invalid duration", "variable", EnvPrefix+"OPEN_TIMEOUT", "value", val)
		}
	}
	if val := os.Getenv(EnvPrefix + "IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.IdleTimeout = d
		} else {
			slog.Warn("ignoring invalid duration", "variable", EnvPrefix+"IDLE_TIMEOUT", "value", val)
		}
	}
	if val := os.Getenv(EnvPrefix + "JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv(EnvPrefix + "JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}

	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a
// configured provider. Variables follow RELAY_PROVIDER_<NAME>_<FIELD> where
// NAME is the uppercase provider name with dashes replaced by underscores.
func applyProviderEnvOverrides(cfg *Config, name string) {
	provider := cfg.Providers[name]
	prefix := ProviderEnvPrefix(name)

	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
	}
	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
	}
	if val := os.Getenv(prefix + "MODEL"); val != "" {
		provider.Model = val
	}

	cfg.Providers[name] = provider
}

// ProviderEnvPrefix returns the environment prefix for a provider name.
func ProviderEnvPrefix(name string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	return EnvPrefix + "PROVIDER_" + key + "_"
}
