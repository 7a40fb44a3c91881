// Package service provides the business logic for the extension gallery API
package service

import (
	"context"
	"errors"
	"io"

	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
)

var (
	// ErrNamespaceNotFound is returned when a namespace is not found
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrExtensionNotFound is returned when an extension is not found
	ErrExtensionNotFound = errors.New("extension not found")
	// ErrVersionNotFound is returned when an extension version is not found
	ErrVersionNotFound = errors.New("version not found")
	// ErrFileNotFound is returned when a file resource is not found
	ErrFileNotFound = errors.New("file not found")
	// ErrKeyPairNotFound is returned when a signing key pair is not found
	ErrKeyPairNotFound = errors.New("key pair not found")
	// ErrBuiltInNamespace is returned when a request names a namespace
	// reserved for editor built-ins
	ErrBuiltInNamespace = errors.New("built-in extension namespace not allowed")
	// ErrInvalidItemName is returned when an item name is not of the form
	// {publisher}.{name}
	ErrInvalidItemName = errors.New("invalid item name")
	// ErrVersionExists is returned when publishing a version that already exists
	ErrVersionExists = errors.New("version already exists")
	// ErrLicenseRequired is returned when license-requiring deployments
	// receive a package without license information
	ErrLicenseRequired = errors.New("license is required")
	// ErrInvalidToken is returned when a publish token does not match any
	// configured token
	ErrInvalidToken = errors.New("invalid access token")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go GalleryService

// GalleryService defines the interface for gallery operations
type GalleryService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// GetExtension returns one active extension with its active versions
	// and their gallery files loaded
	GetExtension(ctx context.Context, opts ...Option[GetExtensionOptions]) (*registry.Extension, error)

	// SearchExtensions returns one page of active extensions plus the
	// total match count
	SearchExtensions(ctx context.Context, opts ...Option[SearchExtensionsOptions]) ([]*registry.Extension, int64, error)

	// GetVersion resolves one active extension version together with its
	// file index
	GetVersion(ctx context.Context, opts ...Option[GetVersionOptions]) (*registry.ExtensionVersion, error)

	// OpenFile streams the content of a version's file resource from its
	// storage backend
	OpenFile(ctx context.Context, version *registry.ExtensionVersion, file *registry.FileResource) (io.ReadCloser, error)

	// IncrementDownloads bumps an extension's download counter
	IncrementDownloads(ctx context.Context, extensionID int64) error

	// GetPublicKey returns the PEM-encoded public key of a signing key pair
	GetPublicKey(ctx context.Context, publicID string) ([]byte, error)

	// PublishExtension ingests one processed extension package
	PublishExtension(ctx context.Context, opts ...Option[PublishExtensionOptions]) (*registry.ExtensionVersion, error)
}

// Option is a function that sets an option for the GetExtensionOptions,
// SearchExtensionsOptions, GetVersionOptions, or PublishExtensionOptions
type Option[
	T GetExtensionOptions | SearchExtensionsOptions | GetVersionOptions | PublishExtensionOptions,
] func(*T) error

// GetExtensionOptions is the options for the GetExtension operation.
// PublicID wins over Namespace/Name when both are set.
type GetExtensionOptions struct {
	PublicID  string
	Namespace string
	Name      string
}

// SearchExtensionsOptions is the options for the SearchExtensions operation
type SearchExtensionsOptions struct {
	Query          string
	Category       string
	TargetPlatform string
	Size           int
	Offset         int
	SortBy         string
	SortOrder      string
}

// GetVersionOptions is the options for the GetVersion operation. An empty
// TargetPlatform resolves any platform, highest rank first; a concrete
// platform falls back to the universal build when no such build exists.
type GetVersionOptions struct {
	Namespace      string
	Extension      string
	Version        string
	TargetPlatform string
}

// PublishExtensionOptions is the options for the PublishExtension operation
type PublishExtensionOptions struct {
	Package *publish.Package
}
