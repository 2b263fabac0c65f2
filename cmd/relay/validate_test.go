package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
)

const testConfig = `
watch: false

proxy:
  listen_address: "127.0.0.1:0"
  shutdown_timeout: 2s

gateway:
  default_provider: test-echo
  default_model: stub-model

providers:
  test-echo:
    type: echo
  test-fail-mid:
    type: fail
    model: fail-model
    chunks: ["He", "llo", "!"]
    fail_after: 1

journal:
  enabled: true
  backend: memory

telemetry:
  logging:
    level: error
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// useConfig points the --config flag at path for the duration of the test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
}

func runValidate(t *testing.T, output string) (string, error) {
	t.Helper()
	orig := validateFlags.output
	validateFlags.output = output
	t.Cleanup(func() { validateFlags.output = orig })

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	err := validateConfig(cmd, nil)
	return buf.String(), err
}

func TestValidate_JSON(t *testing.T) {
	useConfig(t, writeTestConfig(t, testConfig))

	out, err := runValidate(t, "json")
	if err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}

	var got providerTable
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Default != "test-echo" {
		t.Errorf("Default = %q, want %q", got.Default, "test-echo")
	}
	if len(got.Providers) != 2 {
		t.Fatalf("len(Providers) = %d, want 2", len(got.Providers))
	}

	want := []providerInfo{
		{Name: "test-echo", Type: "echo", Model: "stub-model", Default: true},
		{Name: "test-fail-mid", Type: "fail", Model: "fail-model"},
	}
	for i, w := range want {
		if got.Providers[i] != w {
			t.Errorf("Providers[%d] = %+v, want %+v", i, got.Providers[i], w)
		}
	}
}

func TestValidate_Text(t *testing.T) {
	useConfig(t, writeTestConfig(t, testConfig))

	out, err := runValidate(t, "text")
	if err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}
	for _, want := range []string{"✓ Configuration valid", "NAME", "test-echo", "test-fail-mid"} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want it to contain %q", out, want)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		output   string
		wantCode int
	}{
		{
			name:     "unknown default provider",
			config:   "gateway:\n  default_provider: nope\nproviders:\n  test-echo:\n    type: echo\n",
			output:   "text",
			wantCode: cli.ExitConfig,
		},
		{
			name:     "invalid yaml",
			config:   "proxy: [",
			output:   "text",
			wantCode: cli.ExitConfig,
		},
		{
			name:     "unknown output format",
			config:   testConfig,
			output:   "xml",
			wantCode: cli.ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, writeTestConfig(t, tt.config))

			_, err := runValidate(t, tt.output)
			if err == nil {
				t.Fatal("validateConfig() error = nil, want error")
			}
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	useConfig(t, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := runValidate(t, "text")
	if got := cli.ExitCode(err); got != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitConfig)
	}
}
