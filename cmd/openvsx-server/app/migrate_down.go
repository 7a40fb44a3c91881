package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BuckysMyHero/openvsx/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Migrate the database down",
	Long: `Revert applied database migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Revert the most recent migration
  openvsx-server migrate down --config config.yaml --num-steps 1 --yes

  # Revert everything (WARNING: destroys all data)
  openvsx-server migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	if err := confirmMigrateDown(cmd, numSteps); err != nil {
		return err
	}

	connString, err := migrationConnString(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	if numSteps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
	} else {
		slog.Info("Migrating down", "steps", numSteps)
	}
	if err := database.MigrateDown(connString, numSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migration completed successfully")

	reportDownVersion(connString, numSteps)
	return nil
}

// confirmMigrateDown refuses to continue without either --yes or an
// interactive yes, since down migrations drop data.
func confirmMigrateDown(cmd *cobra.Command, numSteps uint) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return nil
	}

	scope, loss := fmt.Sprintf("%d step(s)", numSteps), "data loss"
	if numSteps == 0 {
		scope, loss = "ALL steps", "complete data loss"
	}
	prompt := fmt.Sprintf("WARNING: This will migrate down %s and may result in %s. Continue?", scope, loss)

	if !confirm(cmd, prompt) {
		slog.Info("Migration cancelled")
		return fmt.Errorf("migration cancelled by user")
	}
	return nil
}

func reportDownVersion(connString string, numSteps uint) {
	version, dirty, err := database.GetVersion(connString)
	switch {
	case err != nil:
		slog.Warn("Failed to get migration version", "error", err)
	case version == 0 && numSteps == 0:
		slog.Info("Database schema has been completely removed")
	case version == 0:
		slog.Info("No migrations remain applied")
	case dirty:
		slog.Warn("Current migration version is dirty - manual intervention may be required", "version", version)
	default:
		slog.Info("Current migration version", "version", version)
	}
}
