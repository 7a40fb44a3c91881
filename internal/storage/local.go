package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// localBackend stores content as plain files under a data directory with the
// layout {namespace}/{extension}[/{target}]/{version}/{name}. The target
// segment is omitted for universal builds.
type localBackend struct {
	dir string
}

// NewLocalBackend returns the backend writing under the given directory.
func NewLocalBackend(dir string) Backend {
	return &localBackend{dir: dir}
}

func (*localBackend) StorageType() string {
	return registry.StorageLocal
}

func (b *localBackend) Store(_ context.Context, _ *registry.FileResource, key FileKey, content []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(p, content, 0o640); err != nil {
		return fmt.Errorf("failed to write %s: %w", key.Name, err)
	}
	return nil
}

func (b *localBackend) Open(_ context.Context, _ *registry.FileResource, key FileKey) (io.ReadCloser, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key.Name, err)
	}
	return f, nil
}

// path maps a key to its file path, rejecting names that would escape the
// data directory. Resource names come from package zip entries and are not
// trusted.
func (b *localBackend) path(key FileKey) (string, error) {
	segments := []string{key.Namespace, key.Extension}
	if key.TargetPlatform != "" && key.TargetPlatform != registry.TargetUniversal {
		segments = append(segments, key.TargetPlatform)
	}
	segments = append(segments, key.Version, filepath.FromSlash(key.Name))

	p := filepath.Join(append([]string{b.dir}, segments...)...)
	rel, err := filepath.Rel(b.dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file path escapes the data directory: %s", key.Name)
	}
	return p, nil
}
