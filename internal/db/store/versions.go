package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// versionColumns is the column list scanned by scanVersion. The key pair
// columns come from a LEFT JOIN and may be null.
const versionColumns = `
	v.id, v.extension_id, v.version, v.target_platform, v.engines, v.dependencies,
	v.bundled_extensions, v.categories, v.tags, v.localized_languages,
	v.preview, v.pre_release, v.active, v.timestamp, v.display_name, v.description,
	v.license, v.repository, v.sponsor_link, v.gallery_color, v.gallery_theme, v.web,
	k.id, k.public_id
`

const findActiveVersions = `
SELECT` + versionColumns + `
FROM extension_version v
LEFT JOIN signature_key_pair k ON k.id = v.signature_key_pair_id
WHERE v.extension_id = ANY($1)
  AND v.active
ORDER BY v.timestamp DESC, v.id DESC
`

const findActiveVersion = `
SELECT` + versionColumns + `
FROM extension_version v
JOIN extension e ON e.id = v.extension_id
JOIN namespace n ON n.id = e.namespace_id
LEFT JOIN signature_key_pair k ON k.id = v.signature_key_pair_id
WHERE LOWER(n.name) = LOWER($1)
  AND LOWER(e.name) = LOWER($2)
  AND v.version = $3
  AND e.active
  AND v.active
  AND ($4 = '' OR v.target_platform = $4 OR v.target_platform = 'universal')
ORDER BY (v.target_platform = $4) DESC, array_position($5, v.target_platform)
LIMIT 1
`

const insertVersion = `
INSERT INTO extension_version (
    extension_id, version, target_platform, engines, dependencies, bundled_extensions,
    categories, tags, localized_languages, preview, pre_release, timestamp,
    display_name, description, license, repository, sponsor_link, gallery_color,
    gallery_theme, web, signature_key_pair_id
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
RETURNING id
`

func scanVersion(row pgx.Row) (*registry.ExtensionVersion, int64, error) {
	var (
		v           registry.ExtensionVersion
		extensionID int64
		keyPairID   *int64
		keyPairUUID *string
	)
	err := row.Scan(
		&v.ID, &extensionID, &v.Version, &v.TargetPlatform, &v.Engines, &v.Dependencies,
		&v.BundledExtensions, &v.Categories, &v.Tags, &v.LocalizedLanguages,
		&v.Preview, &v.PreRelease, &v.Active, &v.Timestamp, &v.DisplayName, &v.Description,
		&v.License, &v.Repository, &v.SponsorLink, &v.GalleryColor, &v.GalleryTheme, &v.Web,
		&keyPairID, &keyPairUUID,
	)
	if err != nil {
		return nil, 0, err
	}
	if keyPairID != nil && keyPairUUID != nil {
		v.SignatureKeyPair = &registry.SignatureKeyPair{ID: *keyPairID, PublicID: *keyPairUUID}
	}
	return &v, extensionID, nil
}

// LoadVersions fills in the active versions of the given extensions together
// with the file resources the gallery serves as assets. Package-internal
// resource entries are left out; they are only needed when a single version
// is browsed.
func (q *Queries) LoadVersions(ctx context.Context, extensions []*registry.Extension) error {
	if len(extensions) == 0 {
		return nil
	}
	byID := make(map[int64]*registry.Extension, len(extensions))
	ids := make([]int64, 0, len(extensions))
	for _, ext := range extensions {
		ext.Versions = nil
		byID[ext.ID] = ext
		ids = append(ids, ext.ID)
	}

	rows, err := q.db.Query(ctx, findActiveVersions, ids)
	if err != nil {
		return fmt.Errorf("failed to load versions: %w", err)
	}
	defer rows.Close()

	versionsByID := make(map[int64]*registry.ExtensionVersion)
	for rows.Next() {
		v, extensionID, err := scanVersion(rows)
		if err != nil {
			return fmt.Errorf("failed to scan version: %w", err)
		}
		ext, ok := byID[extensionID]
		if !ok {
			continue
		}
		v.Extension = ext
		ext.Versions = append(ext.Versions, v)
		versionsByID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load versions: %w", err)
	}

	return q.loadGalleryFiles(ctx, versionsByID)
}

// FindActiveVersion resolves one version of an extension, including its file
// resource rows (metadata only, no content). An empty target platform picks
// the best build by platform rank; a concrete platform matches that build or
// falls back to the universal one.
func (q *Queries) FindActiveVersion(ctx context.Context, namespace, extension, version, targetPlatform string) (*registry.ExtensionVersion, error) {
	row := q.db.QueryRow(ctx, findActiveVersion,
		namespace, extension, version, targetPlatform, registry.TargetPlatforms())
	v, extensionID, err := scanVersion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find version %s.%s %s: %w", namespace, extension, version, err)
	}

	ext, err := scanExtension(q.db.QueryRow(ctx, findActiveExtensionByID, extensionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load extension %d: %w", extensionID, err)
	}
	v.Extension = ext
	ext.Versions = []*registry.ExtensionVersion{v}

	files, err := q.ListVersionFiles(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.Files = files
	return v, nil
}

// InsertVersion stores a new version row and sets its id. A unique violation
// on (extension, version, target platform) surfaces as a *pgconn.PgError
// with code 23505.
func (q *Queries) InsertVersion(ctx context.Context, v *registry.ExtensionVersion) error {
	var keyPairID *int64
	if v.SignatureKeyPair != nil {
		keyPairID = &v.SignatureKeyPair.ID
	}
	err := q.db.QueryRow(ctx, insertVersion,
		v.Extension.ID, v.Version, v.TargetPlatform,
		textArray(v.Engines), textArray(v.Dependencies), textArray(v.BundledExtensions),
		textArray(v.Categories), textArray(v.Tags), textArray(v.LocalizedLanguages),
		v.Preview, v.PreRelease, v.Timestamp,
		v.DisplayName, v.Description, v.License, v.Repository, v.SponsorLink,
		v.GalleryColor, v.GalleryTheme, v.Web, keyPairID,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to insert version %s: %w", v.Version, err)
	}
	return nil
}

// textArray keeps nil slices out of NOT NULL text[] columns.
func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
