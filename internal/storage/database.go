package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// ContentFunc loads the stored content of a file resource row by id.
type ContentFunc func(ctx context.Context, fileID int64) ([]byte, error)

// databaseBackend keeps content in the file resource rows themselves.
type databaseBackend struct {
	fetch ContentFunc
}

// NewDatabaseBackend returns the backend keeping content inline in the
// database. fetch loads content for rows read without their content column.
func NewDatabaseBackend(fetch ContentFunc) Backend {
	return &databaseBackend{fetch: fetch}
}

func (*databaseBackend) StorageType() string {
	return registry.StorageDatabase
}

func (*databaseBackend) Store(_ context.Context, file *registry.FileResource, _ FileKey, content []byte) error {
	file.Content = content
	return nil
}

func (b *databaseBackend) Open(ctx context.Context, file *registry.FileResource, _ FileKey) (io.ReadCloser, error) {
	if file.Content != nil {
		return io.NopCloser(bytes.NewReader(file.Content)), nil
	}
	if b.fetch == nil {
		return nil, errors.New("file content is not loaded")
	}
	content, err := b.fetch(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
