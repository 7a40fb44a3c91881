// Package factory provides factory functions for creating gallery service implementations.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/store"
	"github.com/BuckysMyHero/openvsx/internal/service"
	database "github.com/BuckysMyHero/openvsx/internal/service/db"
	"github.com/BuckysMyHero/openvsx/internal/service/inmemory"
	"github.com/BuckysMyHero/openvsx/internal/storage"
)

// NewGalleryService creates a GalleryService based on the configuration.
//
// When a database section is configured, it returns a PostgreSQL-backed
// service; the pool parameter must not be nil in that case. File contents
// are routed through a storage provider that always carries the database
// backend and additionally a local-filesystem backend when the local
// storage backend is configured.
//
// Without a database section it returns an in-memory service, optionally
// seeded with .vsix packages from seedDir.
func NewGalleryService(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	seedDir string,
) (service.GalleryService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Database == nil {
		slog.Info("Creating in-memory gallery service")
		opts := []inmemory.Option{
			inmemory.WithBuiltinNamespaces(cfg.Gallery.GetBuiltinNamespaces()),
			inmemory.WithSigning(cfg.Signing.Enabled),
			inmemory.WithRequireLicense(cfg.Publish.RequireLicense),
		}
		if seedDir != "" {
			opts = append(opts, inmemory.WithSeedDirectory(seedDir))
		}
		return inmemory.New(ctx, opts...)
	}

	if pool == nil {
		return nil, fmt.Errorf("database pool is required when a database is configured")
	}

	slog.Info("Creating database-backed gallery service",
		"storage_backend", cfg.Storage.GetBackend())
	opts := []database.Option{
		database.WithConnectionPool(pool),
		database.WithStorageType(cfg.StorageType()),
		database.WithSigning(cfg.Signing.Enabled),
		database.WithRequireLicense(cfg.Publish.RequireLicense),
		database.WithBuiltinNamespaces(cfg.Gallery.GetBuiltinNamespaces()),
	}
	if cfg.Storage.GetBackend() == config.StorageBackendLocal {
		provider := storage.NewProvider(
			storage.NewDatabaseBackend(store.New(pool).GetFileContent),
			storage.NewLocalBackend(cfg.Storage.LocalDir),
		)
		opts = append(opts, database.WithStorageProvider(provider))
	}
	return database.New(opts...)
}
