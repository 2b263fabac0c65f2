package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/telemetry/health"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFlags struct {
	short  bool
	output string
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the relay version with its commit, build date and Go toolchain.

The JSON form matches the body served on /version.`,
	Args: cobra.NoArgs,
	RunE: printVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionFlags.short, "short", false, "print only the version number")
	versionCmd.Flags().StringVarP(&versionFlags.output, "output", "o", "text", "output format: text or json")
}

func buildInfo() health.VersionInfo {
	return health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func printVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if versionFlags.short {
		_, err := fmt.Fprintln(out, Version)
		return err
	}

	format, err := cli.ParseOutputFormat(versionFlags.output)
	if err != nil {
		return err
	}
	info := buildInfo()
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(out, info)
	}

	_, err = fmt.Fprintf(out, "Relay %s\n  commit:  %s\n  built:   %s\n  go:      %s %s/%s\n",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, runtime.GOOS, runtime.GOARCH)
	return err
}
