// Package cli provides helpers shared by the relay commands.
//
// # Output Formatting
//
// Commands accept --output text|json|csv. Results that implement Tabular
// render as aligned columns or CSV; JSON output encodes the value as is:
//
//	format, err := cli.ParseOutputFormat(outputFlag)
//	if err != nil {
//	    return err
//	}
//	return cli.NewFormatter(format).FormatTo(os.Stdout, result)
//
// # Progress Reporting
//
// For load generation, workers report each finished request:
//
//	progress := cli.NewProgressReporter(os.Stderr)
//	progress.Start(total)
//	// in each worker
//	progress.Increment(err == nil)
//	progress.Finish()
//
// # Signal Handling
//
//	ctx, stop := cli.SignalContext(context.Background())
//	defer stop()
//
// A second SIGINT or SIGTERM terminates the process without waiting for the
// drain.
//
// # Exit Codes
//
// ExitCode returns 2 for configuration errors and 1 for everything else.
package cli
