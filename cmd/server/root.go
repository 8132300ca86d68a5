package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/user_management/internal/config"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/internal/service"
	"github.com/Skotchmaster/user_management/pkg/db"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "user-management",
		Short:        "Account registration, login and profile service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed roles, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := logging.New(cfg.LogLevel)
	ctx = logging.IntoContext(ctx, l)

	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.DB.Pool())
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close(gdb)

	if err := repo.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := service.SeedRoles(ctx, &repo.GormRepo{DB: gdb}); err != nil {
		return err
	}
	l.Info("migration complete")
	return nil
}
