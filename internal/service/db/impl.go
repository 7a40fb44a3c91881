// Package database provides a PostgreSQL-backed implementation of the
// GalleryService interface.
package database

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/BuckysMyHero/openvsx/internal/db/store"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/storage"
)

// publicKeyCacheSize bounds the PEM cache. Key pairs are rarely rotated, so
// a small cache absorbs nearly all public key lookups.
const publicKeyCacheSize = 64

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// options holds configuration options for the database service
type options struct {
	pool              *pgxpool.Pool
	storage           *storage.Provider
	storageType       string
	tracer            trace.Tracer
	signingEnabled    bool
	requireLicense    bool
	builtinNamespaces []string
}

// Option is a functional option for configuring the database service
type Option func(*options) error

// WithConnectionPool creates a new database-backed gallery service with the
// given pgx pool. The caller is responsible for closing the pool when it is
// done.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithStorageProvider sets the backend provider that file content is written
// to and read from. If not set, a database-only provider is built over the
// pool.
func WithStorageProvider(provider *storage.Provider) Option {
	return func(o *options) error {
		if provider == nil {
			return fmt.Errorf("storage provider is required")
		}
		o.storage = provider
		return nil
	}
}

// WithStorageType sets the storage backend newly published files are written
// to. Defaults to database storage.
func WithStorageType(storageType string) Option {
	return func(o *options) error {
		if storageType != registry.StorageDatabase && storageType != registry.StorageLocal {
			return fmt.Errorf("unknown storage type: %s", storageType)
		}
		o.storageType = storageType
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the database service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithSigning enables package signing at publish time. New versions are
// signed with the active key pair, creating one on first use.
func WithSigning(enabled bool) Option {
	return func(o *options) error {
		o.signingEnabled = enabled
		return nil
	}
}

// WithRequireLicense rejects published packages that carry neither a license
// declaration nor a license file.
func WithRequireLicense(required bool) Option {
	return func(o *options) error {
		o.requireLicense = required
		return nil
	}
}

// WithBuiltinNamespaces sets the namespaces reserved for editor built-ins.
// They never appear in search results and cannot be published to.
func WithBuiltinNamespaces(namespaces []string) Option {
	return func(o *options) error {
		o.builtinNamespaces = namespaces
		return nil
	}
}

// dbService implements the GalleryService interface using a database backend
type dbService struct {
	pool              *pgxpool.Pool
	storage           *storage.Provider
	storageType       string
	searcher          *search.DatabaseSearcher
	tracer            trace.Tracer
	signingEnabled    bool
	requireLicense    bool
	builtinNamespaces []string
	publicKeys        *lru.Cache[string, []byte]
}

var _ service.GalleryService = (*dbService)(nil)

// New creates a new database-backed gallery service with the given options
func New(opts ...Option) (service.GalleryService, error) {
	o := &options{
		storageType: registry.StorageDatabase,
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.pool == nil {
		return nil, fmt.Errorf("a database connection pool is required")
	}
	if o.storage == nil {
		o.storage = storage.NewProvider(
			storage.NewDatabaseBackend(store.New(o.pool).GetFileContent),
		)
	}

	publicKeys, err := lru.New[string, []byte](publicKeyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create public key cache: %w", err)
	}

	return &dbService{
		pool:              o.pool,
		storage:           o.storage,
		storageType:       o.storageType,
		searcher:          search.NewDatabaseSearcher(o.pool),
		tracer:            o.tracer,
		signingEnabled:    o.signingEnabled,
		requireLicense:    o.requireLicense,
		builtinNamespaces: o.builtinNamespaces,
		publicKeys:        publicKeys,
	}, nil
}

// CheckReadiness checks if the service is ready to serve requests
func (s *dbService) CheckReadiness(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// isBuiltinNamespace reports whether the namespace is reserved for editor
// built-ins.
func (s *dbService) isBuiltinNamespace(namespace string) bool {
	for _, ns := range s.builtinNamespaces {
		if strings.EqualFold(ns, namespace) {
			return true
		}
	}
	return false
}
