package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/store"
	"github.com/BuckysMyHero/openvsx/internal/signing"
)

// InitializeSigningKeyPair ensures an active signing key pair exists in the
// database when signing is enabled. This function is idempotent and safe to
// call on every startup.
//
// Pre-creating the pair at startup means the public key endpoint serves a
// stable key from the first request on, instead of the pair appearing lazily
// with the first signed publish.
func InitializeSigningKeyPair(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	if !cfg.Signing.Enabled {
		slog.Debug("Signing disabled, skipping key pair initialization")
		return nil
	}

	if pool == nil {
		return fmt.Errorf("database pool is required")
	}

	queries := store.New(pool)

	keyPair, err := queries.FindActiveKeyPair(ctx)
	if err == nil {
		slog.Info("Signing key pair present", "public_id", keyPair.PublicID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to look up active key pair: %w", err)
	}

	keyPair, err = signing.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("failed to generate signing key pair: %w", err)
	}
	if err := queries.InsertKeyPair(ctx, keyPair); err != nil {
		return fmt.Errorf("failed to store signing key pair: %w", err)
	}

	slog.InfoContext(ctx, "Created signing key pair", "public_id", keyPair.PublicID)
	return nil
}
