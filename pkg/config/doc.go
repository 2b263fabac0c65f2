// Package config loads, validates and watches the relay configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// Before parsing, the file named by env_file (default ".env", relative to the
// config file) is loaded into the process environment if it exists, and
// ${VAR} references in the YAML are expanded.
//
// # Environment Variable Overrides
//
// A small set of RELAY_ variables take precedence over the file:
//
//   - RELAY_LISTEN_ADDRESS overrides proxy.listen_address
//   - RELAY_DEFAULT_PROVIDER overrides gateway.default_provider
//   - RELAY_LOG_LEVEL overrides telemetry.logging.level
//   - RELAY_PROVIDER_<NAME>_API_KEY overrides providers.<name>.api_key
//
// Provider names are upper-cased with "-" and "." mapped to "_", so the
// provider "test-echo" reads RELAY_PROVIDER_TEST_ECHO_API_KEY.
//
// # Validation
//
// Validate collects every problem it finds into a ValidationError rather than
// stopping at the first one. Use HasField to check for a specific field.
//
// # Hot Reload
//
// Watcher reloads the file on change. Only the logging level is applied to a
// running server; other changes are logged and take effect on restart. A
// reload that fails validation is rejected and the current configuration
// stays in place.
package config
