package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"ThreadHarvester/internal/app"
	"ThreadHarvester/internal/config"
	"ThreadHarvester/internal/logging"
)

// version is set at build time via ldflags.
var version = ""

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threadharvester",
		Short: "Harvest recent forum posts and their comment trees",
		Long: `threadharvester crawls listing pages through a remote browser, fetches every
post newer than the crawl window and publishes the batch to a queue.

Without a subcommand it performs a single run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context())
		},
	}

	cmd.AddCommand(newRunCmd(), newServeCmd(), newMigrateCmd(), newVersionCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one harvest and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context())
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Harvest on the configured cron schedule and expose /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply published-post ledger migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			logging.New(cfg.Logging.Level).Info("migrations applied", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "threadharvester version %s\n", getVersion())
		},
	}
}

func runOnce(ctx context.Context) error {
	return withApplication(ctx, func(ctx context.Context, a *app.Application) error {
		return a.Run(ctx)
	})
}

func withApplication(ctx context.Context, fn func(context.Context, *app.Application) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.Warn("close application", "error", closeErr)
		}
	}()

	return fn(ctx, application)
}

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
