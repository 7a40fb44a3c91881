// Package storage provides factory functions for creating the gallery
// service together with its storage backend. It implements the Abstract
// Factory pattern so that the application wires exactly one storage family
// (database-backed or in-memory) and its lifecycle in a single place.
package storage

import (
	"context"
	"fmt"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates the gallery service bound to one storage backend.
// It also manages the lifecycle of storage resources (e.g., database
// connections).
type Factory interface {
	// CreateGalleryService builds the gallery service on top of this
	// factory's backend.
	CreateGalleryService(ctx context.Context) (service.GalleryService, error)

	// Connection returns the database connection for database-backed
	// factories and nil otherwise. Startup tasks that need direct pool
	// access (key pair bootstrap) use this.
	Connection() *db.Connection

	// Cleanup releases whatever the factory holds open, the connection
	// pool in the database case. Call it once at shutdown.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configuration.
// A configured database section selects the PostgreSQL-backed factory;
// without one the gallery runs fully in memory, optionally seeded with
// .vsix packages from seedDir.
func NewStorageFactory(ctx context.Context, cfg *config.Config, seedDir string) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Database != nil {
		return NewDatabaseFactory(ctx, cfg)
	}
	return NewMemoryFactory(cfg, seedDir)
}
