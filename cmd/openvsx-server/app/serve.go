package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BuckysMyHero/openvsx/database"
	"github.com/BuckysMyHero/openvsx/internal/app"
	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/auth"
	"github.com/BuckysMyHero/openvsx/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery server",
	Long: `Start the gallery server to serve the Visual Studio Marketplace gallery API.

The server requires a configuration file (--config) that specifies:
- The backing store (PostgreSQL or in-memory) and file storage backend
- Gallery settings such as base URL, built-in namespaces and upstream
- Publishing, signing and telemetry settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout   = 30 * time.Second // Kubernetes-friendly shutdown time
	telemetryShutdownTimeout = 10 * time.Second // Enough to flush pending spans and metrics
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides the configured host and port)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	serveCmd.Flags().Bool("migrate", false, "Apply pending database migrations before starting")

	if err := bindViperFlags(serveCmd.Flags(), "address", "config", "migrate"); err != nil {
		slog.Error("Failed to bind serve flags", "error", err)
		os.Exit(1)
	}

	// Mark config as required
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Load and validate configuration (now required)
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", configPath)

	if viper.GetBool("migrate") {
		if err := migrateAtBoot(ctx, cfg); err != nil {
			return err
		}
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	opts := []app.GalleryAppOptions{
		app.WithConfig(cfg),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
		app.WithMetricsHandler(tel.MetricsHandler()),
	}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, app.WithAddress(address))
	}

	galleryApp, err := app.NewGalleryApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create gallery server: %w", err)
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- galleryApp.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		slog.Info("Shutting down server...", "signal", sig.String())
	}

	if err := galleryApp.Stop(defaultGracefulTimeout); err != nil {
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}

// migrateAtBoot applies pending migrations before the server starts. The
// in-memory backend has no schema, so a missing database section is not an
// error here.
func migrateAtBoot(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		slog.Info("No database configured, skipping boot migration")
		return nil
	}

	connString, err := auth.MigrationConnectionString(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to get migration connection string: %w", err)
	}

	slog.Info("Applying database migrations before startup")
	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := database.GetVersion(connString)
	if err != nil {
		slog.Warn("Unable to get migration version", "error", err)
	} else if dirty {
		slog.Warn("Database is in a dirty state", "version", version)
	} else {
		slog.Info("Migrations applied", "version", version)
	}

	return nil
}
