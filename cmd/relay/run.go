package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/journal"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/registry"
	"mercator-hq/relay/pkg/responder"
	"mercator-hq/relay/pkg/server"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/metrics"
)

// providerHealthInterval is how often provider health is copied into the
// provider_healthy gauge.
const providerHealthInterval = 15 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay gateway",
	Long: `Start the relay gateway with the specified configuration.

The gateway listens on the configured address, streams completions from the
configured providers and records every session in the journal. SIGINT or
SIGTERM starts a graceful drain; a second signal exits immediately.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8080

  # Validate config without starting the server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// loadConfig loads the --config file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		printProviders(out, cfg)
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	return serve(ctx, cfg, out)
}

// serve builds the gateway from cfg and runs it until ctx is done.
func serve(ctx context.Context, cfg *config.Config, out io.Writer) error {
	tel, err := telemetry.New(&cfg.Telemetry, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	fmt.Fprintf(out, "Relay v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)

	reg, err := registry.New(cfg.AdapterConfigs(), cfg.Gateway.DefaultProvider)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer reg.Close()
	fmt.Fprintf(out, "✓ Providers initialized (%d providers, default %q)\n", reg.Len(), reg.Default())

	observers := []session.Observer{tel.Metrics}

	var (
		store     journal.Store
		recorder  *journal.Recorder
		retention *journal.Retention
	)
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open journal: %w", err))
		}
		defer store.Close()

		recorder = journal.NewRecorder(store, cfg.Journal.BufferSize,
			journal.WithDropHandler(tel.Metrics.RecordJournalDrop),
		)
		// Flush buffered records before the store closes.
		defer recorder.Close()
		observers = append(observers, recorder)

		retention = journal.NewRetention(store, cfg.Journal.Retention.MaxAge, cfg.Journal.Retention.Schedule)
		fmt.Fprintf(out, "✓ Journal initialized (%s)\n", cfg.Journal.Backend)
	}

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("providers", health.ProvidersCheck(func() (int, int) {
		h := reg.Health()
		return h.Healthy, h.Total
	}))
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		checker.RegisterCheck("journal", p.Ping)
	}

	completions := handlers.NewCompletionHandler(handlers.Options{
		Registry:     reg,
		Responder:    responder.New(responder.Options{Logger: tel.Logger.Slog()}),
		Observer:     session.Observers(observers...),
		Tracer:       tel.Tracer.Tracer(),
		Metrics:      tel.Metrics,
		ResolveModel: cfg.ResolveModel,
		OpenTimeout:  cfg.Gateway.OpenTimeout,
		IdleTimeout:  cfg.Gateway.IdleTimeout,
		WriteTimeout: cfg.Proxy.WriteTimeout,
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
		ContentType:  cfg.Proxy.ContentType,
		CORS:         cfg.Proxy.CORS,
	})

	h := server.Handlers{
		Completions: completions,
		Providers:   handlers.NewProvidersHandler(reg),
		Version:     health.VersionHandler(Version, GitCommit, BuildDate),
		Health:      checker,
	}
	if store != nil {
		h.Sessions = handlers.NewSessionsHandler(store)
	}
	if cfg.Telemetry.Metrics.Enabled {
		h.Metrics = tel.Metrics.Handler()
		h.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	srv := server.New(&cfg.Proxy, &cfg.Security, h)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		reg.StartHealthChecks(gctx)
		return watchProviderHealth(gctx, reg, tel.Metrics, providerHealthInterval)
	})

	if retention != nil {
		if err := retention.Start(gctx); err != nil {
			slog.Warn("failed to start journal retention", "error", err)
		}
	}

	if cfg.Watch {
		watcher, err := config.NewWatcher(cfgFile, 0, func(next *config.Config) {
			if err := tel.Logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
				slog.Warn("ignoring reloaded log level", "error", err)
				return
			}
			slog.Info("log level reloaded", "level", next.Telemetry.Logging.Level)
		})
		if err != nil {
			slog.Warn("config watching disabled", "error", err)
		} else {
			g.Go(func() error {
				if err := watcher.Run(gctx); err != nil {
					slog.Warn("config watcher stopped", "error", err)
				}
				return nil
			})
		}
	}

	g.Go(func() error {
		select {
		case <-srv.Ready():
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Listening on %s\n", srv.Addr())
			fmt.Fprintln(out, "\nPress Ctrl+C to stop")
		case <-gctx.Done():
		}
		return nil
	})

	err = g.Wait()
	if retention != nil {
		retention.Stop()
	}
	if recorder != nil && recorder.Dropped() > 0 {
		slog.Warn("journal records dropped", "count", recorder.Dropped())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// watchProviderHealth publishes provider health to the metrics collector
// until ctx is done.
func watchProviderHealth(ctx context.Context, reg *registry.Registry, c *metrics.Collector, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for name, h := range reg.Health().Details {
			c.UpdateProviderHealth(name, h.IsHealthy)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
