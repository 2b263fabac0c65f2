package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, including RELAY_* environment
overrides, and list the providers it defines.

Examples:
  # Validate config.yaml in the current directory
  relay validate

  # Validate another file and print the providers as JSON
  relay validate --config /etc/relay/config.yaml --output json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json, csv")
}

// providerTable lists the configured providers.
type providerTable struct {
	Default   string         `json:"default"`
	Providers []providerInfo `json:"providers"`
}

type providerInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Default bool   `json:"default"`
}

func (t providerTable) Header() []string {
	return []string{"NAME", "TYPE", "MODEL", "BASE URL", "DEFAULT"}
}

func (t providerTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Providers))
	for _, p := range t.Providers {
		rows = append(rows, []string{p.Name, p.Type, p.Model, p.BaseURL, strconv.FormatBool(p.Default)})
	}
	return rows
}

func newProviderTable(cfg *config.Config) providerTable {
	t := providerTable{Default: cfg.Gateway.DefaultProvider}
	for _, name := range cfg.ProviderNames() {
		p := cfg.Providers[name]
		t.Providers = append(t.Providers, providerInfo{
			Name:    name,
			Type:    p.Type,
			Model:   cfg.ResolveModel(name, ""),
			BaseURL: p.BaseURL,
			Default: name == cfg.Gateway.DefaultProvider,
		})
	}
	return t
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintf(out, "✓ Configuration valid (%s)\n\n", cfgFile)
	}
	return cli.NewFormatter(format).FormatTo(out, newProviderTable(cfg))
}

func printProviders(w io.Writer, cfg *config.Config) {
	_ = cli.NewFormatter(cli.FormatText).FormatTo(w, newProviderTable(cfg))
}
