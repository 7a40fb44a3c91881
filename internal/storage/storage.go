// Package storage provides the file resource content backends. Published
// content lives either inline in the database or as files under a local data
// directory; every file resource row names the backend holding its bytes.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// FileKey locates one stored file by its position in the extension tree.
// Name is the artifact file name or the resource path inside the package.
type FileKey struct {
	Namespace      string
	Extension      string
	TargetPlatform string
	Version        string
	Name           string
}

// KeyFor builds the storage key of a version's file resource.
func KeyFor(version *registry.ExtensionVersion, file *registry.FileResource) FileKey {
	key := FileKey{
		TargetPlatform: version.TargetPlatform,
		Version:        version.Version,
		Name:           file.Name,
	}
	if version.Extension != nil {
		key.Extension = version.Extension.Name
		key.Namespace = version.Extension.NamespaceName()
	}
	return key
}

// Backend stores and retrieves file resource content.
type Backend interface {
	// StorageType returns the file resource storage type this backend
	// serves.
	StorageType() string

	// Store persists content under key. Backends that keep content inline
	// in the file row set it on the file resource instead.
	Store(ctx context.Context, file *registry.FileResource, key FileKey, content []byte) error

	// Open streams previously stored content.
	Open(ctx context.Context, file *registry.FileResource, key FileKey) (io.ReadCloser, error)
}

// Provider routes content operations to the backend named by each file
// resource's storage type.
type Provider struct {
	backends map[string]Backend
}

// NewProvider builds a provider over the given backends.
func NewProvider(backends ...Backend) *Provider {
	p := &Provider{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		p.backends[b.StorageType()] = b
	}
	return p
}

// Store persists content through the backend the file resource names.
func (p *Provider) Store(ctx context.Context, file *registry.FileResource, key FileKey, content []byte) error {
	b, err := p.backend(file.Storage)
	if err != nil {
		return err
	}
	return b.Store(ctx, file, key, content)
}

// Open streams content through the backend the file resource names.
func (p *Provider) Open(ctx context.Context, file *registry.FileResource, key FileKey) (io.ReadCloser, error) {
	b, err := p.backend(file.Storage)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, file, key)
}

func (p *Provider) backend(storageType string) (Backend, error) {
	b, ok := p.backends[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage backend for type %q", storageType)
	}
	return b, nil
}

// mediaTypes overrides the platform MIME table for the file types the
// gallery commonly serves.
var mediaTypes = map[string]string{
	".vsix":         "application/zip",
	".sigzip":       "application/zip",
	".zip":          "application/zip",
	".json":         "application/json",
	".vsixmanifest": "text/xml",
	".xml":          "text/xml",
	".md":           "text/markdown",
	".txt":          "text/plain",
	".js":           "text/javascript",
	".css":          "text/css",
	".png":          "image/png",
	".gif":          "image/gif",
	".jpg":          "image/jpeg",
	".jpeg":         "image/jpeg",
	".svg":          "image/svg+xml",
}

// MediaType returns the content type served for a stored file, derived from
// its file extension.
func MediaType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
