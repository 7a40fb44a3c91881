package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

const listVersionFiles = `
SELECT id, extension_version_id, name, type, storage_type
FROM file_resource
WHERE extension_version_id = $1
ORDER BY name
`

const listGalleryFiles = `
SELECT id, extension_version_id, name, type, storage_type
FROM file_resource
WHERE extension_version_id = ANY($1)
  AND type <> 'resource'
`

const getFileContent = `
SELECT content
FROM file_resource
WHERE id = $1
`

const insertFile = `
INSERT INTO file_resource (extension_version_id, name, type, storage_type, content)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`

// ListVersionFiles returns all file resource rows of a version, resources
// included, without loading content.
func (q *Queries) ListVersionFiles(ctx context.Context, versionID int64) ([]*registry.FileResource, error) {
	rows, err := q.db.Query(ctx, listVersionFiles, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of version %d: %w", versionID, err)
	}
	defer rows.Close()

	var files []*registry.FileResource
	for rows.Next() {
		var f registry.FileResource
		if err := rows.Scan(&f.ID, &f.VersionID, &f.Name, &f.Type, &f.Storage); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list files of version %d: %w", versionID, err)
	}
	return files, nil
}

// loadGalleryFiles attaches the asset-backing files (everything but resource
// entries) to the given versions.
func (q *Queries) loadGalleryFiles(ctx context.Context, versions map[int64]*registry.ExtensionVersion) error {
	if len(versions) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(versions))
	for id := range versions {
		ids = append(ids, id)
	}

	rows, err := q.db.Query(ctx, listGalleryFiles, ids)
	if err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f registry.FileResource
		if err := rows.Scan(&f.ID, &f.VersionID, &f.Name, &f.Type, &f.Storage); err != nil {
			return fmt.Errorf("failed to scan file: %w", err)
		}
		if v, ok := versions[f.VersionID]; ok {
			v.Files = append(v.Files, &f)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}
	return nil
}

// GetFileContent loads the stored bytes of a database-backed file resource.
func (q *Queries) GetFileContent(ctx context.Context, fileID int64) ([]byte, error) {
	var content []byte
	err := q.db.QueryRow(ctx, getFileContent, fileID).Scan(&content)
	if err != nil {
		return nil, fmt.Errorf("failed to load content of file %d: %w", fileID, err)
	}
	if content == nil {
		return nil, errors.New("file content is not stored in the database")
	}
	return content, nil
}

// InsertFile stores a file resource row and sets its id. Content is written
// as-is; rows backed by external storage carry nil content.
func (q *Queries) InsertFile(ctx context.Context, f *registry.FileResource) error {
	err := q.db.QueryRow(ctx, insertFile, f.VersionID, f.Name, f.Type, f.Storage, f.Content).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", f.Name, err)
	}
	return nil
}
