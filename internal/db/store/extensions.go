package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// extensionColumns is the column list scanned by scanExtension.
const extensionColumns = `
	e.id, e.public_id, e.name, e.download_count, e.average_rating, e.review_count,
	e.published_date, e.last_updated_date, e.active, e.deprecated, e.downloadable,
	n.id, n.public_id, n.name
`

const findActiveExtension = `
SELECT` + extensionColumns + `
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
WHERE LOWER(n.name) = LOWER($1)
  AND LOWER(e.name) = LOWER($2)
  AND e.active
`

const findActiveExtensionByPublicID = `
SELECT` + extensionColumns + `
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
WHERE e.public_id = $1
  AND e.active
`

const findActiveExtensionsByID = `
SELECT` + extensionColumns + `
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
WHERE e.id = ANY($1)
  AND e.active
`

const findActiveExtensionByID = `
SELECT` + extensionColumns + `
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
WHERE e.id = $1
  AND e.active
`

const findExtensionInNamespace = `
SELECT` + extensionColumns + `
FROM extension e
JOIN namespace n ON n.id = e.namespace_id
WHERE e.namespace_id = $1
  AND LOWER(e.name) = LOWER($2)
`

const insertExtension = `
INSERT INTO extension (public_id, name, namespace_id, published_date, last_updated_date)
VALUES ($1, $2, $3, $4, $4)
RETURNING id
`

const touchExtension = `
UPDATE extension
SET last_updated_date = $2
WHERE id = $1
`

const incrementDownloadCount = `
UPDATE extension
SET download_count = download_count + 1
WHERE id = $1
`

func scanExtension(row pgx.Row) (*registry.Extension, error) {
	ext := registry.Extension{Namespace: &registry.Namespace{}}
	err := row.Scan(
		&ext.ID, &ext.PublicID, &ext.Name, &ext.DownloadCount, &ext.AverageRating, &ext.ReviewCount,
		&ext.PublishedDate, &ext.LastUpdated, &ext.Active, &ext.Deprecated, &ext.Downloadable,
		&ext.Namespace.ID, &ext.Namespace.PublicID, &ext.Namespace.Name,
	)
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

// FindActiveExtension looks up an active extension by namespace and name,
// both case-insensitive. Versions are not loaded.
func (q *Queries) FindActiveExtension(ctx context.Context, namespace, name string) (*registry.Extension, error) {
	ext, err := scanExtension(q.db.QueryRow(ctx, findActiveExtension, namespace, name))
	if err != nil {
		return nil, fmt.Errorf("failed to find extension %s.%s: %w", namespace, name, err)
	}
	return ext, nil
}

// FindActiveExtensionByPublicID looks up an active extension by its public
// UUID. Versions are not loaded.
func (q *Queries) FindActiveExtensionByPublicID(ctx context.Context, publicID string) (*registry.Extension, error) {
	ext, err := scanExtension(q.db.QueryRow(ctx, findActiveExtensionByPublicID, publicID))
	if err != nil {
		return nil, fmt.Errorf("failed to find extension %s: %w", publicID, err)
	}
	return ext, nil
}

// FindActiveExtensionsByID loads the active extensions with the given ids,
// preserving the order of the input. Missing and inactive ids are skipped.
func (q *Queries) FindActiveExtensionsByID(ctx context.Context, ids []int64) ([]*registry.Extension, error) {
	rows, err := q.db.Query(ctx, findActiveExtensionsByID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load extensions: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*registry.Extension, len(ids))
	for rows.Next() {
		ext, err := scanExtension(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extension: %w", err)
		}
		byID[ext.ID] = ext
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load extensions: %w", err)
	}

	extensions := make([]*registry.Extension, 0, len(byID))
	for _, id := range ids {
		if ext, ok := byID[id]; ok {
			extensions = append(extensions, ext)
		}
	}
	return extensions, nil
}

// GetOrCreateExtension returns the extension with the given name inside the
// namespace, creating it on first publish. Inactive extensions are returned
// as-is so a republish can reactivate them.
func (q *Queries) GetOrCreateExtension(ctx context.Context, ns *registry.Namespace, name string, published time.Time) (*registry.Extension, error) {
	ext, err := scanExtension(q.db.QueryRow(ctx, findExtensionInNamespace, ns.ID, name))
	if err == nil {
		ext.Namespace = ns
		return ext, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find extension %s.%s: %w", ns.Name, name, err)
	}

	ext = &registry.Extension{
		PublicID:      uuid.NewString(),
		Name:          name,
		Namespace:     ns,
		PublishedDate: published,
		LastUpdated:   published,
		Active:        true,
		Downloadable:  true,
	}
	err = q.db.QueryRow(ctx, insertExtension, ext.PublicID, ext.Name, ns.ID, published).Scan(&ext.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create extension %s.%s: %w", ns.Name, name, err)
	}
	return ext, nil
}

// TouchExtension bumps the extension's last-updated timestamp.
func (q *Queries) TouchExtension(ctx context.Context, extensionID int64, updated time.Time) error {
	_, err := q.db.Exec(ctx, touchExtension, extensionID, updated)
	if err != nil {
		return fmt.Errorf("failed to update extension %d: %w", extensionID, err)
	}
	return nil
}

// IncrementDownloadCount adds one download to the extension's counter.
func (q *Queries) IncrementDownloadCount(ctx context.Context, extensionID int64) error {
	_, err := q.db.Exec(ctx, incrementDownloadCount, extensionID)
	if err != nil {
		return fmt.Errorf("failed to count download for extension %d: %w", extensionID, err)
	}
	return nil
}
