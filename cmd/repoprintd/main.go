// Repoprintd converts source archives into paginated PDF reports.
//
// The daemon accepts ZIP uploads or GitHub repository coordinates over
// HTTP, renders every included file as line-numbered pages behind a
// clickable index, and serves the finished reports for download.
//
// Configuration is loaded from an optional YAML file plus REPOPRINT_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	repoprintd
//
//	# Start with a config file
//	repoprintd --config ~/.config/repoprint/config.yaml
//
//	# Configure via environment
//	REPOPRINT_SERVER_PORT=9000 repoprintd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/inkweldlabs/repoprint/internal/config"
	"github.com/inkweldlabs/repoprint/internal/engine"
	"github.com/inkweldlabs/repoprint/internal/fetch"
	httpserver "github.com/inkweldlabs/repoprint/internal/http"
	"github.com/inkweldlabs/repoprint/internal/janitor"
	"github.com/inkweldlabs/repoprint/internal/job"
	"github.com/inkweldlabs/repoprint/internal/logging"
	"github.com/inkweldlabs/repoprint/internal/store"
	"github.com/inkweldlabs/repoprint/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  repoprintd           Start the repoprint daemon\n")
			fmt.Fprintf(os.Stderr, "  repoprintd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("repoprintd by Inkweld Labs\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Commit:     %s\n", version.GitCommit)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
}

// run wires the daemon together and blocks until the context is
// cancelled, then shuts the HTTP server down gracefully. Background
// conversions observe the same context, so a SIGTERM fails queued
// work with a clear cause instead of abandoning it silently.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("starting repoprintd",
		zap.String("version", version.Version),
		zap.String("commit", version.GitCommit),
		zap.Int("port", cfg.Server.Port),
		zap.String("scratch_dir", cfg.Paths.ScratchDir),
		zap.String("output_dir", cfg.Paths.OutputDir),
		zap.Bool("github_token", cfg.GitHub.Token.IsSet()))

	jobs := job.NewStore(cfg.Jobs.Retention, logger)
	go jobs.Run(ctx)

	reports, err := store.New(cfg.Paths.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("initializing report store: %w", err)
	}
	go func() {
		if err := reports.Watch(ctx); err != nil {
			logger.Warn("report watcher stopped", zap.Error(err))
		}
	}()

	fetcher, err := fetch.New(fetch.NewGitHubClient(ctx, cfg.GitHub.Token), logger)
	if err != nil {
		return fmt.Errorf("initializing github fetcher: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Jobs:         jobs,
		Reports:      reports,
		Fetcher:      fetcher,
		ScratchDir:   cfg.Paths.ScratchDir,
		BatchSize:    cfg.Jobs.BatchSize,
		MaxFileBytes: cfg.Jobs.MaxFileBytes,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	jan, err := janitor.New(cfg.Janitor.Interval, cfg.Janitor.MaxAge, logger,
		cfg.Paths.ScratchDir, cfg.Paths.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing janitor: %w", err)
	}
	go jan.Run(ctx)

	srv, err := httpserver.NewServer(httpserver.Options{
		Jobs:    jobs,
		Engine:  eng,
		Reports: reports,
		Logger:  logger,
		Config: &httpserver.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			RatePerSecond:  cfg.Server.RatePerSecond,
			RateBurst:      cfg.Server.RateBurst,
		},
		BaseContext: ctx,
	})
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
