package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuckysMyHero/openvsx/database"
	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/store"
)

func TestInitializeSigningKeyPair_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		t.Parallel()

		err := InitializeSigningKeyPair(ctx, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("signing disabled skips without a pool", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{}
		require.NoError(t, InitializeSigningKeyPair(ctx, cfg, nil))
	})

	t.Run("signing enabled requires a pool", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Signing: config.SigningConfig{Enabled: true}}
		err := InitializeSigningKeyPair(ctx, cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database pool is required")
	})
}

func TestInitializeSigningKeyPair_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database container test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	pool, cleanup := database.SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanup)

	cfg := &config.Config{Signing: config.SigningConfig{Enabled: true}}

	require.NoError(t, InitializeSigningKeyPair(ctx, cfg, pool))

	queries := store.New(pool)
	first, err := queries.FindActiveKeyPair(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first.PublicID)
	assert.True(t, first.Active)

	// A second run must reuse the existing pair
	require.NoError(t, InitializeSigningKeyPair(ctx, cfg, pool))

	second, err := queries.FindActiveKeyPair(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.PublicID, second.PublicID)
	assert.Equal(t, first.ID, second.ID)
}
