package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BuckysMyHero/openvsx/database"
	"github.com/BuckysMyHero/openvsx/internal/config"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply every migration the database has not seen yet, reading the
connection parameters from the config file named by --config.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}

	proceed, err := confirmMigrateUp(cmd, cfg)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	connString, err := migrationConnString(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	slog.Info("Applying database migrations...")
	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	switch version, dirty, err := database.GetVersion(connString); {
	case err != nil:
		slog.Warn("Unable to get migration version", "error", err)
	case dirty:
		slog.Warn("Database is in a dirty state", "version", version)
	default:
		slog.Info("Migrations applied successfully", "version", version)
	}

	return nil
}

// confirmMigrateUp asks before touching the schema unless --yes was given.
// A false return with nil error means the user declined.
func confirmMigrateUp(cmd *cobra.Command, cfg *config.Config) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}

	slog.Info("About to apply migrations",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database,
		"user", cfg.Database.GetMigrationUser())
	if !confirm(cmd, "Continue?") {
		slog.Info("Migration cancelled by user")
		return false, nil
	}
	return true, nil
}
