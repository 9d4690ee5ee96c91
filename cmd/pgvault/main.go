package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgvault/pgvault/internal/app"
	"github.com/pgvault/pgvault/internal/config"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgvault",
		Short:         "PostgreSQL cluster backup orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(
		newBackupCmd(),
		newRestoreCmd(),
		newPruneCmd(),
		newServeCmd(),
	)

	return root
}

// withApp defers config loading and wiring until after argument validation,
// so a usage error has no side effects at all.
func withApp(fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer application.Shutdown()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return fn(ctx, application, args)
	}
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <kind>",
		Short: "Run one backup of the given kind (e.g. daily) and enforce retention",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			archivePath, err := a.Backup(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(archivePath)
			return nil
		}),
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive.tar.gz>",
		Short: "Restore globals and every database from an archive",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			return a.Restore(ctx, args[0])
		}),
	}
}

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune [kind]",
		Short: "Enforce retention without producing a new backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}
			deleted, err := a.Prune(ctx, kind)
			fmt.Printf("Deleted %d archive(s)\n", deleted)
			return err
		}),
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a daemon, backing up on the configured cron schedules",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App, _ []string) error {
			return a.Serve(ctx)
		}),
	}
}
