package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devwell/backend/features/library"
	"devwell/backend/internal/app"
	"devwell/backend/internal/config"
	"devwell/backend/internal/logger"
)

func main() {
	slog.SetDefault(logger.New(os.Stdout, slog.LevelInfo))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the library API and ingestion workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	root := &cobra.Command{
		Use:           "devwell",
		Short:         "DevWell personal library backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}

	root.AddCommand(serve, newMigrateCmd(), newStatsCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations for the library store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.LibraryStore != config.StorePostgres {
				return fmt.Errorf("migrate needs LIBRARY_STORE=%s, got %q", config.StorePostgres, cfg.LibraryStore)
			}
			db, err := app.OpenPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return app.RunMigrations(db, cfg.MigrationPath)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print item and chunk counts from the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.WorkerMode = config.WorkerModeLocal

			deps, err := app.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			index := library.NewIndex(deps.Repo)
			if err := index.Load(cmd.Context()); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(index.Stats(cmd.Context()))
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	a, err := app.New(ctx, cfg, deps)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
