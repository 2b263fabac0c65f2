package config

// testConfig returns a valid configuration with a single echo provider,
// "test-echo", as the default. mods run before defaults are applied.
func testConfig(mods ...func(*Config)) *Config {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{"test-echo": {Type: "echo"}}
	cfg.Gateway.DefaultProvider = "test-echo"
	for _, mod := range mods {
		mod(cfg)
	}
	ApplyDefaults(cfg)
	return cfg
}

func withProvider(name string, p ProviderConfig) func(*Config) {
	return func(cfg *Config) { cfg.Providers[name] = p }
}
