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

// DatabaseFactory creates the PostgreSQL-backed gallery service.
// It owns the connection pool for the lifetime of the application.
type DatabaseFactory struct {
	config *config.Config
	conn   *db.Connection
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory opens a connection pool against the configured
// PostgreSQL database and verifies it with a ping.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config) (*DatabaseFactory, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("config cannot be nil")
	case cfg.Database == nil:
		return nil, fmt.Errorf("database configuration is required for database storage")
	}

	slog.Info("Using PostgreSQL-backed gallery storage")

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &DatabaseFactory{
		config: cfg,
		conn:   conn,
	}, nil
}

// CreateGalleryService creates a database-backed gallery service.
// The service reads and writes extensions directly to PostgreSQL; file
// contents go to the configured storage backend.
func (d *DatabaseFactory) CreateGalleryService(ctx context.Context) (service.GalleryService, error) {
	slog.Debug("Creating database-backed gallery service")
	return factory.NewGalleryService(ctx, d.config, d.conn.Pool, "")
}

// Connection returns the database connection owned by this factory.
func (d *DatabaseFactory) Connection() *db.Connection {
	return d.conn
}

// Cleanup closes the connection pool.
func (d *DatabaseFactory) Cleanup() {
	if d.conn != nil {
		d.conn.Close()
	}
}
