package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/database/postgres"
	"github.com/kozaktomas/facial-attendance/internal/database/sqlite"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending PostgreSQL schema migrations.
For a sqlite:// DATABASE_URL the schema is created on open.

Examples:
  # Apply migrations
  facial-attendance migrate

  # List applied migrations
  facial-attendance migrate --status`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "List applied migrations without applying new ones")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	status := mustGetBool(cmd, "status")
	ctx := context.Background()
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	if sqlite.IsURL(cfg.Database.URL) {
		store, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open SQLite database: %w", err)
		}
		defer store.Close()
		fmt.Println("SQLite schema is up to date")
		return nil
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if !status {
		applied, err := pool.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) == 0 {
			fmt.Println("No pending migrations")
		}
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Applied migrations (%d):\n", len(versions))
	for _, v := range versions {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
