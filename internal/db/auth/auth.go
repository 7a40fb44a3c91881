// Package auth resolves short-lived database credentials at connect time.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/auth/aws"
)

var (
	errNoConfig     = errors.New("database configuration is required")
	errNoAuthMethod = errors.New("dynamic auth is configured but no supported auth method (e.g., awsRdsIam) is specified")
)

// ResolveToken resolves a dynamic authentication token for the given user.
// Returns an empty string if dynamic authentication is not configured.
// The returned token can be used as a password in a PostgreSQL connection
// string, which is useful for short-lived connections (e.g. migrations)
// where a BeforeConnect hook cannot be used.
func ResolveToken(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	user string,
) (string, error) {
	switch {
	case cfg == nil:
		return "", errNoConfig
	case cfg.DynamicAuth == nil:
		return "", nil
	case cfg.DynamicAuth.AWSRDSIAM != nil:
		return aws.Token(ctx, cfg, user)
	default:
		// Once a second auth method exists this needs a check that
		// exactly one of them is configured.
		return "", errNoAuthMethod
	}
}

// BeforeConnect creates a pgx BeforeConnect hook that refreshes the
// connection password from the configured dynamic auth method.
func BeforeConnect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	user string,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	switch {
	case cfg == nil:
		return nil, errNoConfig
	case cfg.DynamicAuth == nil:
		return nil, errors.New("dynamic authentication is not configured")
	case cfg.DynamicAuth.AWSRDSIAM != nil:
		return aws.BeforeConnect(ctx, cfg, user)
	default:
		return nil, errNoAuthMethod
	}
}

// MigrationConnectionString builds a PostgreSQL connection string suitable for
// running migrations. It resolves a dynamic auth token (if configured) and
// embeds it in the connection string so that both pgx and golang-migrate
// (which opens its own internal connection) can authenticate.
//
// Without dynamic auth it falls back to the static migration connection
// string from the configuration.
func MigrationConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", errNoConfig
	}

	if cfg.DynamicAuth == nil {
		return cfg.GetMigrationConnectionString()
	}

	user := cfg.GetMigrationUser()

	token, err := ResolveToken(ctx, cfg, user)
	if err != nil {
		return "", fmt.Errorf("failed to resolve auth token for migration user: %w", err)
	}

	return cfg.BuildConnectionStringWithAuth(user, token), nil
}
