package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BuckysMyHero/openvsx/database"
)

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current migration version",
	Long: `Show the migration version the database schema is currently at,
and whether the schema is in a dirty state from a failed migration.`,
	RunE: runMigrateVersion,
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}

	connString, err := migrationConnString(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	version, dirty, err := database.GetVersion(connString)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if version == 0 {
		slog.Info("No migrations have been applied")
		return nil
	}

	if dirty {
		slog.Warn("Database is in a dirty state - manual intervention may be required", "version", version)
	} else {
		slog.Info("Current migration version", "version", version)
	}

	return nil
}
