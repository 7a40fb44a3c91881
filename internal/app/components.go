package app

import (
	"github.com/BuckysMyHero/openvsx/internal/db"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/telemetry"
)

// AppComponents groups the long-lived pieces the running server owns.
//
//nolint:revive // This name is fine
type AppComponents struct {
	// GalleryService answers every gallery API operation
	GalleryService service.GalleryService

	// Database is nil when the in-memory backend is active
	Database *db.Connection

	// Metrics holds the gallery domain instruments, nil when metrics are off
	Metrics *telemetry.GalleryMetrics
}
