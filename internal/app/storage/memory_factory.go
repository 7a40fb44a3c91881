package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/service/factory"
)

// MemoryFactory creates the in-memory gallery service. Extensions live in
// process memory only; an optional seed directory of .vsix packages is
// published into the gallery at startup. Intended for development and
// evaluation setups without a database.
type MemoryFactory struct {
	config  *config.Config
	seedDir string
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new in-memory storage factory.
func NewMemoryFactory(cfg *config.Config, seedDir string) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating in-memory storage factory", "seed_dir", seedDir)

	return &MemoryFactory{
		config:  cfg,
		seedDir: seedDir,
	}, nil
}

// CreateGalleryService creates an in-memory gallery service, seeded from
// the configured seed directory when one is set.
func (f *MemoryFactory) CreateGalleryService(ctx context.Context) (service.GalleryService, error) {
	slog.Debug("Creating in-memory gallery service")
	return factory.NewGalleryService(ctx, f.config, nil, f.seedDir)
}

// Connection returns nil; the in-memory factory has no database.
func (*MemoryFactory) Connection() *db.Connection {
	return nil
}

// Cleanup releases resources held by the memory factory.
// There are none (no connection pools, etc.).
func (*MemoryFactory) Cleanup() {
	slog.Debug("Cleaning up in-memory storage factory (no-op)")
}
