// Package db contains code for connecting to the database.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/auth"
)

const (
	defaultMaxConns       = 25
	defaultMinConns       = 5
	defaultConnectTimeout = 10 * time.Second

	// How long to keep retrying the initial ping. The database regularly
	// comes up a few seconds after the server in orchestrated deployments.
	connectMaxElapsedTime = time.Minute
)

// Connection wraps the pgx connection pool.
type Connection struct {
	Pool *pgxpool.Pool
}

// NewConnection creates a connection pool from the provided configuration
// and verifies it with a ping, retrying with exponential backoff while the
// database comes up.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	// Validate required fields
	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("database port is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	connString, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = defaultMaxConns
	}
	poolConfig.MinConns = cfg.MaxIdleConns
	if poolConfig.MinConns == 0 {
		poolConfig.MinConns = defaultMinConns
	}

	lifetime, err := cfg.GetConnMaxLifetime()
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConnLifetime = lifetime
	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	if cfg.DynamicAuth != nil {
		beforeConnect, err := auth.BeforeConnect(ctx, cfg, cfg.User)
		if err != nil {
			return nil, fmt.Errorf("failed to configure dynamic authentication: %w", err)
		}
		poolConfig.BeforeConnect = beforeConnect
		slog.InfoContext(ctx, "dynamic database authentication enabled")
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ping := func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	}
	notify := func(err error, next time.Duration) {
		slog.WarnContext(ctx, "database not reachable yet, retrying",
			"error", err, "next_attempt_in", next)
	}
	if _, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(connectMaxElapsedTime),
		backoff.WithNotify(notify),
	); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "database connection established",
		"user", cfg.User, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &Connection{Pool: pool}, nil
}

// Close closes the connection pool.
func (c *Connection) Close() {
	if c.Pool != nil {
		slog.Info("closing database connection pool")
		c.Pool.Close()
	}
}

// Ping verifies the database connection is still alive.
func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("database connection is nil")
	}
	return c.Pool.Ping(ctx)
}
