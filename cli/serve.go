package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blogapi/database"
	"blogapi/server"
)

type ServeOptions struct {
	*RootOptions
	Addr      string
	NoMigrate bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Configuration comes from the environment and an
optional .env file in the working directory.

Example:
  blogapi serve
  PORT=8080 DB_DRIVER=mysql DB_DSN='user:pass@tcp(localhost:3306)/blog?parseTime=true' blogapi serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides PORT)")
	cmd.Flags().BoolVar(&opts.NoMigrate, "no-migrate", false, "skip schema migration on startup")

	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	cfg, db, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if !opts.NoMigrate {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, db); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
