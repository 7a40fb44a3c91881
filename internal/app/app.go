// Package app provides application lifecycle management for the gallery server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

// How often the extensions gauge is refreshed while the server runs.
const extensionsGaugeInterval = time.Minute

// GalleryApp encapsulates all components needed to run the gallery server.
// It provides lifecycle management and graceful shutdown capabilities.
type GalleryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// ctx is canceled by Stop; background workers watch it
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the application components (HTTP server and the background
// metrics refresher). This method blocks until the HTTP server stops or
// encounters an error.
func (app *GalleryApp) Start() error {
	// Keep the extensions gauge current in the background
	if app.components.Metrics != nil {
		go app.refreshExtensionsGauge(app.ctx)
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It cancels background work and then shuts down the HTTP server.
func (app *GalleryApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	// Cancel the application context; this also releases storage resources
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	// In-flight requests get until the deadline to drain
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig exposes the configuration the app was built with.
func (app *GalleryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer exposes the underlying HTTP server, mainly so tests can
// read the resolved listen address.
func (app *GalleryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// refreshExtensionsGauge periodically records the number of active
// extensions. It runs until the application context is canceled.
func (app *GalleryApp) refreshExtensionsGauge(ctx context.Context) {
	ticker := time.NewTicker(extensionsGaugeInterval)
	defer ticker.Stop()

	record := func() {
		// Only the match count is needed, so request the smallest page
		_, total, err := app.components.GalleryService.SearchExtensions(ctx, service.WithPage(1, 0))
		if err != nil {
			slog.WarnContext(ctx, "Failed to count extensions for metrics", "error", err)
			return
		}
		app.components.Metrics.RecordExtensionsTotal(ctx, total)
	}

	record()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record()
		}
	}
}
