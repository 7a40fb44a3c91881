package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuckysMyHero/openvsx/database"
	"github.com/BuckysMyHero/openvsx/internal/registry"
)

func TestQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database container test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	pool, cleanup := database.SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanup)

	q := New(pool)

	ns, err := q.GetOrCreateNamespace(ctx, "redhat")
	require.NoError(t, err)
	require.NotZero(t, ns.ID)
	require.NotEmpty(t, ns.PublicID)

	published := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	ext, err := q.GetOrCreateExtension(ctx, ns, "vscode-yaml", published)
	require.NoError(t, err)
	require.NotZero(t, ext.ID)
	assert.True(t, ext.Active)
	assert.True(t, ext.Downloadable)

	keyPair := &registry.SignatureKeyPair{
		PublicID:   "47bc4a49-d114-4144-82cc-bc28d1e38fb1",
		PublicKey:  []byte("pub"),
		PrivateKey: []byte("priv"),
		Created:    published,
		Active:     true,
	}
	require.NoError(t, q.InsertKeyPair(ctx, keyPair))

	older := &registry.ExtensionVersion{
		Extension:      ext,
		Version:        "0.4.0",
		TargetPlatform: registry.TargetUniversal,
		DisplayName:    "YAML",
		Timestamp:      published,
	}
	require.NoError(t, q.InsertVersion(ctx, older))

	latest := &registry.ExtensionVersion{
		Extension:        ext,
		Version:          "0.5.2",
		TargetPlatform:   registry.TargetUniversal,
		DisplayName:      "YAML",
		Description:      "YAML language support",
		Engines:          []string{"vscode@^1.31.0"},
		Categories:       []string{"Programming Languages"},
		Tags:             []string{"yaml"},
		Timestamp:        published.Add(24 * time.Hour),
		SignatureKeyPair: keyPair,
	}
	require.NoError(t, q.InsertVersion(ctx, latest))

	darwin := &registry.ExtensionVersion{
		Extension:      ext,
		Version:        "0.5.2",
		TargetPlatform: "darwin-arm64",
		DisplayName:    "YAML",
		Timestamp:      published.Add(24 * time.Hour),
	}
	require.NoError(t, q.InsertVersion(ctx, darwin))

	files := []*registry.FileResource{
		{VersionID: latest.ID, Name: "redhat.vscode-yaml-0.5.2.vsix", Type: registry.FileTypeDownload, Storage: registry.StorageDatabase, Content: []byte("vsix-bytes")},
		{VersionID: latest.ID, Name: "package.json", Type: registry.FileTypeManifest, Storage: registry.StorageDatabase, Content: []byte(`{"name":"vscode-yaml"}`)},
		{VersionID: latest.ID, Name: "extension/package.json", Type: registry.FileTypeResource, Storage: registry.StorageDatabase, Content: []byte(`{"name":"vscode-yaml"}`)},
		{VersionID: latest.ID, Name: "extension.vsixmanifest", Type: registry.FileTypeVSIXManifest, Storage: registry.StorageDatabase, Content: []byte("<xml/>")},
	}
	for _, f := range files {
		require.NoError(t, q.InsertFile(ctx, f))
		require.NotZero(t, f.ID)
	}

	t.Run("namespace lookup is case-insensitive", func(t *testing.T) {
		same, err := q.GetOrCreateNamespace(ctx, "RedHat")
		require.NoError(t, err)
		assert.Equal(t, ns.ID, same.ID)
		assert.Equal(t, "redhat", same.Name)
	})

	t.Run("extension reused on republish", func(t *testing.T) {
		same, err := q.GetOrCreateExtension(ctx, ns, "VSCODE-YAML", published.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, ext.ID, same.ID)
	})

	t.Run("find active extension", func(t *testing.T) {
		found, err := q.FindActiveExtension(ctx, "REDHAT", "Vscode-Yaml")
		require.NoError(t, err)
		assert.Equal(t, ext.ID, found.ID)
		assert.Equal(t, "redhat", found.Namespace.Name)

		_, err = q.FindActiveExtension(ctx, "redhat", "nope")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("find by public id", func(t *testing.T) {
		found, err := q.FindActiveExtensionByPublicID(ctx, ext.PublicID)
		require.NoError(t, err)
		assert.Equal(t, ext.ID, found.ID)

		_, err = q.FindActiveExtensionByPublicID(ctx, "11111111-2222-3333-4444-555555555555")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("find by ids keeps input order and drops unknowns", func(t *testing.T) {
		other, err := q.GetOrCreateExtension(ctx, ns, "vscode-xml", published)
		require.NoError(t, err)

		found, err := q.FindActiveExtensionsByID(ctx, []int64{other.ID, 99999, ext.ID})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, other.ID, found[0].ID)
		assert.Equal(t, ext.ID, found[1].ID)
	})

	t.Run("load versions attaches gallery files and key pair", func(t *testing.T) {
		found, err := q.FindActiveExtension(ctx, "redhat", "vscode-yaml")
		require.NoError(t, err)
		require.NoError(t, q.LoadVersions(ctx, []*registry.Extension{found}))

		require.Len(t, found.Versions, 3)
		for _, v := range found.Versions {
			assert.Same(t, found, v.Extension)
		}

		var loaded *registry.ExtensionVersion
		for _, v := range found.Versions {
			if v.ID == latest.ID {
				loaded = v
			}
		}
		require.NotNil(t, loaded)
		assert.Equal(t, []string{"vscode@^1.31.0"}, loaded.Engines)
		require.NotNil(t, loaded.SignatureKeyPair)
		assert.Equal(t, keyPair.PublicID, loaded.SignatureKeyPair.PublicID)

		// Gallery loading skips resource entries.
		names := make([]string, 0, len(loaded.Files))
		for _, f := range loaded.Files {
			names = append(names, f.Name)
		}
		assert.ElementsMatch(t, []string{
			"redhat.vscode-yaml-0.5.2.vsix", "package.json", "extension.vsixmanifest",
		}, names)
	})

	t.Run("find active version resolves target platforms", func(t *testing.T) {
		v, err := q.FindActiveVersion(ctx, "redhat", "vscode-yaml", "0.5.2", "darwin-arm64")
		require.NoError(t, err)
		assert.Equal(t, darwin.ID, v.ID)

		// No windows build: fall back to the universal one.
		v, err = q.FindActiveVersion(ctx, "redhat", "vscode-yaml", "0.5.2", "win32-x64")
		require.NoError(t, err)
		assert.Equal(t, latest.ID, v.ID)

		// No platform requested: highest ranked build wins.
		v, err = q.FindActiveVersion(ctx, "redhat", "vscode-yaml", "0.5.2", "")
		require.NoError(t, err)
		assert.Equal(t, latest.ID, v.ID)
		require.NotNil(t, v.Extension)
		assert.Equal(t, ext.ID, v.Extension.ID)
		assert.Len(t, v.Files, 4, "single version loads resource entries too")

		_, err = q.FindActiveVersion(ctx, "redhat", "vscode-yaml", "9.9.9", "")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("file content", func(t *testing.T) {
		content, err := q.GetFileContent(ctx, files[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("vsix-bytes"), content)

		_, err = q.GetFileContent(ctx, 99999)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("download counter and touch", func(t *testing.T) {
		require.NoError(t, q.IncrementDownloadCount(ctx, ext.ID))
		require.NoError(t, q.IncrementDownloadCount(ctx, ext.ID))

		updated := published.Add(48 * time.Hour)
		require.NoError(t, q.TouchExtension(ctx, ext.ID, updated))

		found, err := q.FindActiveExtension(ctx, "redhat", "vscode-yaml")
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.DownloadCount)
		assert.Equal(t, updated, found.LastUpdated.UTC())
	})

	t.Run("key pairs", func(t *testing.T) {
		kp, err := q.FindKeyPair(ctx, keyPair.PublicID)
		require.NoError(t, err)
		assert.Equal(t, keyPair.ID, kp.ID)
		assert.Equal(t, []byte("pub"), kp.PublicKey)

		active, err := q.FindActiveKeyPair(ctx)
		require.NoError(t, err)
		assert.Equal(t, keyPair.ID, active.ID)

		_, err = q.FindKeyPair(ctx, "unknown")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("duplicate version violates uniqueness", func(t *testing.T) {
		dup := &registry.ExtensionVersion{
			Extension:      ext,
			Version:        "0.5.2",
			TargetPlatform: registry.TargetUniversal,
			Timestamp:      time.Now().UTC(),
		}
		err := q.InsertVersion(ctx, dup)
		require.Error(t, err)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23505", pgErr.Code)
	})

	t.Run("rolled back transaction leaves no rows", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)

		qtx := q.WithTx(tx)
		_, err = qtx.GetOrCreateNamespace(ctx, "ephemeral")
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))

		_, err = q.FindNamespace(ctx, "ephemeral")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("inactive versions stay hidden", func(t *testing.T) {
		_, err := pool.Exec(ctx, "UPDATE extension_version SET active = FALSE WHERE id = $1", older.ID)
		require.NoError(t, err)

		found, err := q.FindActiveExtension(ctx, "redhat", "vscode-yaml")
		require.NoError(t, err)
		require.NoError(t, q.LoadVersions(ctx, []*registry.Extension{found}))
		assert.Len(t, found.Versions, 2)

		_, err = q.FindActiveVersion(ctx, "redhat", "vscode-yaml", "0.4.0", "")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})
}
