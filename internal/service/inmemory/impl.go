// Package inmemory provides a memory-backed implementation of the
// GalleryService interface for tests and demo deployments without a
// database.
package inmemory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/signing"
)

// memSvc implements the GalleryService interface over in-process state
type memSvc struct {
	mu sync.RWMutex // Protects extensions, keyPairs, nextID

	extensions []*registry.Extension
	keyPairs   []*registry.SignatureKeyPair
	nextID     int64

	builtinNamespaces []string
	signingEnabled    bool
	requireLicense    bool
	seedDir           string
}

var _ service.GalleryService = (*memSvc)(nil)

// Option is a functional option for configuring the memSvc
type Option func(*memSvc)

// WithBuiltinNamespaces sets the namespaces reserved for editor built-ins
func WithBuiltinNamespaces(namespaces []string) Option {
	return func(s *memSvc) {
		s.builtinNamespaces = namespaces
	}
}

// WithSigning enables package signing at publish time
func WithSigning(enabled bool) Option {
	return func(s *memSvc) {
		s.signingEnabled = enabled
	}
}

// WithRequireLicense rejects published packages without license information
func WithRequireLicense(required bool) Option {
	return func(s *memSvc) {
		s.requireLicense = required
	}
}

// WithSeedDirectory publishes every .vsix file found in the directory when
// the service is created.
func WithSeedDirectory(dir string) Option {
	return func(s *memSvc) {
		s.seedDir = dir
	}
}

// New creates a new memory-backed gallery service with the given options
func New(ctx context.Context, opts ...Option) (service.GalleryService, error) {
	s := &memSvc{}

	for _, opt := range opts {
		opt(s)
	}

	if s.seedDir != "" {
		if err := s.seedFromDirectory(ctx, s.seedDir); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// seedFromDirectory ingests the .vsix packages in dir, skipping anything
// that does not process cleanly.
func (s *memSvc) seedFromDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read seed directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".vsix") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		pkg, err := publish.Read(content)
		if err != nil {
			slog.WarnContext(ctx, "Skipping seed package", "path", path, "error", err)
			continue
		}
		if _, err := s.PublishExtension(ctx, service.WithPackage(pkg)); err != nil {
			slog.WarnContext(ctx, "Skipping seed package", "path", path, "error", err)
			continue
		}
		loaded++
	}
	slog.InfoContext(ctx, "Seeded gallery from directory", "dir", dir, "extensions", loaded)
	return nil
}

// CheckReadiness checks if the service is ready to serve requests
func (*memSvc) CheckReadiness(_ context.Context) error {
	return nil
}

// GetExtension returns one active extension with its active versions
func (s *memSvc) GetExtension(
	_ context.Context,
	opts ...service.Option[service.GetExtensionOptions],
) (*registry.Extension, error) {
	o := service.GetExtensionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	ref := o.PublicID
	if ref == "" {
		if o.Namespace == "" || o.Name == "" {
			return nil, fmt.Errorf("an extension id or a namespace and name are required")
		}
		ref = o.Namespace + "." + o.Name
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ext := s.findLocked(o.PublicID, o.Namespace, o.Name)
	if ext == nil {
		return nil, fmt.Errorf("%w: %s", service.ErrExtensionNotFound, ref)
	}
	return galleryView(ext), nil
}

// SearchExtensions returns one page of active extensions plus the total
// match count
func (s *memSvc) SearchExtensions(
	_ context.Context,
	opts ...service.Option[service.SearchExtensionsOptions],
) ([]*registry.Extension, int64, error) {
	o := service.SearchExtensionsOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, 0, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.matchLocked(o)
	total := int64(len(matches))

	sortMatches(matches, o.SortBy, o.SortOrder)

	size := o.Size
	if size <= 0 {
		size = search.DefaultSize
	}
	if size > search.MaxSize {
		size = search.MaxSize
	}
	offset := o.Offset
	if offset >= len(matches) {
		return nil, total, nil
	}
	end := offset + size
	if end > len(matches) {
		end = len(matches)
	}

	out := make([]*registry.Extension, 0, end-offset)
	for _, m := range matches[offset:end] {
		out = append(out, galleryView(m.ext))
	}
	return out, total, nil
}

// GetVersion resolves one active extension version
func (s *memSvc) GetVersion(
	_ context.Context,
	opts ...service.Option[service.GetVersionOptions],
) (*registry.ExtensionVersion, error) {
	o := service.GetVersionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	if o.Namespace == "" || o.Extension == "" || o.Version == "" {
		return nil, fmt.Errorf("a namespace, extension name and version are required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ext := s.findLocked("", o.Namespace, o.Extension)
	if ext != nil {
		if v := resolveVersion(ext, o.Version, o.TargetPlatform); v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s %s", service.ErrVersionNotFound, o.Namespace, o.Extension, o.Version)
}

// OpenFile streams the content of a file resource. Memory-backed files
// always carry their content inline.
func (*memSvc) OpenFile(
	_ context.Context,
	_ *registry.ExtensionVersion,
	file *registry.FileResource,
) (io.ReadCloser, error) {
	if file.Content == nil {
		return nil, fmt.Errorf("%w: %s", service.ErrFileNotFound, file.Name)
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// IncrementDownloads bumps an extension's download counter
func (s *memSvc) IncrementDownloads(_ context.Context, extensionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ext := range s.extensions {
		if ext.ID == extensionID {
			ext.DownloadCount++
			return nil
		}
	}
	return fmt.Errorf("%w: %d", service.ErrExtensionNotFound, extensionID)
}

// GetPublicKey returns the PEM-encoded public key of a signing key pair
func (s *memSvc) GetPublicKey(_ context.Context, publicID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, kp := range s.keyPairs {
		if kp.PublicID == publicID {
			return signing.PublicKeyPEM(kp)
		}
	}
	return nil, fmt.Errorf("%w: %s", service.ErrKeyPairNotFound, publicID)
}

// PublishExtension ingests one processed extension package
func (s *memSvc) PublishExtension(
	ctx context.Context,
	opts ...service.Option[service.PublishExtensionOptions],
) (*registry.ExtensionVersion, error) {
	o := service.PublishExtensionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	pkg := o.Package
	if pkg == nil {
		return nil, fmt.Errorf("a processed package is required")
	}

	for _, ns := range s.builtinNamespaces {
		if strings.EqualFold(ns, pkg.Namespace) {
			return nil, fmt.Errorf("%w: %s", service.ErrBuiltInNamespace, pkg.Namespace)
		}
	}
	if s.requireLicense && !pkg.HasLicense() {
		return nil, fmt.Errorf("%w: %s.%s has no license", service.ErrLicenseRequired, pkg.Namespace, pkg.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	ext := s.findLocked("", pkg.Namespace, pkg.Name)
	if ext == nil {
		ext = &registry.Extension{
			ID:       s.nextIDLocked(),
			PublicID: uuid.NewString(),
			Name:     pkg.Name,
			Namespace: &registry.Namespace{
				ID:       s.nextIDLocked(),
				PublicID: uuid.NewString(),
				Name:     pkg.Namespace,
			},
			PublishedDate: now,
			LastUpdated:   now,
			Active:        true,
			Downloadable:  true,
		}
		s.extensions = append(s.extensions, ext)
	}

	for _, v := range ext.Versions {
		if v.Version == pkg.Version && v.TargetPlatform == pkg.TargetPlatform {
			return nil, fmt.Errorf("%w: %s.%s %s (%s)",
				service.ErrVersionExists, pkg.Namespace, pkg.Name, pkg.Version, pkg.TargetPlatform)
		}
	}

	version := &registry.ExtensionVersion{
		ID:                 s.nextIDLocked(),
		Extension:          ext,
		Version:            pkg.Version,
		TargetPlatform:     pkg.TargetPlatform,
		Engines:            pkg.Engines,
		Dependencies:       pkg.Dependencies,
		BundledExtensions:  pkg.BundledExtensions,
		Categories:         pkg.Categories,
		Tags:               pkg.Tags,
		LocalizedLanguages: pkg.LocalizedLanguages,
		Preview:            pkg.Preview,
		PreRelease:         pkg.PreRelease,
		Active:             true,
		Timestamp:          now,
		DisplayName:        pkg.DisplayName,
		Description:        pkg.Description,
		License:            pkg.License,
		Repository:         pkg.Repository,
		SponsorLink:        pkg.SponsorLink,
		GalleryColor:       pkg.GalleryColor,
		GalleryTheme:       pkg.GalleryTheme,
		Web:                pkg.Web,
	}

	var sigzip []byte
	if s.signingEnabled {
		keyPair, err := s.activeKeyPairLocked()
		if err != nil {
			return nil, err
		}
		version.SignatureKeyPair = keyPair
		sigzip, err = signing.Sign(keyPair, pkg.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to sign package: %w", err)
		}
	}

	addFile := func(name, fileType string, content []byte) {
		version.Files = append(version.Files, &registry.FileResource{
			ID:        s.nextIDLocked(),
			VersionID: version.ID,
			Name:      name,
			Type:      fileType,
			Storage:   registry.StorageDatabase,
			Content:   content,
		})
	}
	addFile(pkg.DownloadName(), registry.FileTypeDownload, pkg.Content)
	for _, f := range pkg.Files {
		addFile(f.Name, f.Type, f.Content)
	}
	for _, r := range pkg.Resources {
		addFile(r.Name, r.Type, r.Content)
	}
	if sigzip != nil {
		addFile(pkg.SignatureName(), registry.FileTypeSignature, sigzip)
	}

	ext.Versions = append(ext.Versions, version)
	ext.LastUpdated = now

	slog.InfoContext(ctx, "Extension published",
		"namespace", pkg.Namespace,
		"extension", pkg.Name,
		"version", pkg.Version,
		"target_platform", version.TargetPlatform,
		"files", len(version.Files))

	return version, nil
}

func (s *memSvc) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// activeKeyPairLocked returns the signing key pair, generating one on first
// use.
func (s *memSvc) activeKeyPairLocked() (*registry.SignatureKeyPair, error) {
	for _, kp := range s.keyPairs {
		if kp.Active {
			return kp, nil
		}
	}
	keyPair, err := signing.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	keyPair.ID = s.nextIDLocked()
	s.keyPairs = append(s.keyPairs, keyPair)
	return keyPair, nil
}

// findLocked resolves an active extension with at least one active version,
// by public id when given, otherwise by namespace and name.
func (s *memSvc) findLocked(publicID, namespace, name string) *registry.Extension {
	for _, ext := range s.extensions {
		if !ext.Active {
			continue
		}
		if publicID != "" {
			if ext.PublicID != publicID {
				continue
			}
		} else if !strings.EqualFold(ext.Namespace.Name, namespace) || !strings.EqualFold(ext.Name, name) {
			continue
		}
		if len(registry.ActiveVersions(ext.Versions, "")) == 0 {
			continue
		}
		return ext
	}
	return nil
}

// galleryView narrows an extension to its active versions, newest first.
func galleryView(ext *registry.Extension) *registry.Extension {
	out := *ext
	out.Versions = registry.ActiveVersions(ext.Versions, "")
	return &out
}

// resolveVersion picks the version build for a target platform: exact match
// first, then the universal build. An empty platform takes the highest
// ranked build.
func resolveVersion(ext *registry.Extension, version, targetPlatform string) *registry.ExtensionVersion {
	var best, exact, universal *registry.ExtensionVersion
	for _, v := range registry.ActiveVersions(ext.Versions, "") {
		if v.Version != version {
			continue
		}
		if best == nil {
			best = v
		}
		if exact == nil && v.TargetPlatform == targetPlatform {
			exact = v
		}
		if universal == nil && v.TargetPlatform == registry.TargetUniversal {
			universal = v
		}
	}
	if targetPlatform == "" {
		return best
	}
	if exact != nil {
		return exact
	}
	return universal
}

// match is one search hit with its relevance score.
type match struct {
	ext   *registry.Extension
	score float64
}

// matchLocked filters the catalog with the same semantics as the database
// searcher: substring matching over names and latest-version metadata,
// category and platform narrowing, excluded namespaces dropped.
func (s *memSvc) matchLocked(o service.SearchExtensionsOptions) []match {
	query := strings.ToLower(o.Query)

	var matches []match
	for _, ext := range s.extensions {
		if !ext.Active || s.isBuiltin(ext.Namespace.Name) {
			continue
		}
		actives := registry.ActiveVersions(ext.Versions, "")
		if len(actives) == 0 {
			continue
		}
		latest := actives[0]

		if o.Category != "" && !containsFold(latest.Categories, o.Category) {
			continue
		}
		if o.TargetPlatform != "" && !hasPlatformBuild(actives, o.TargetPlatform) {
			continue
		}

		score := textScore(ext, latest, query)
		if query != "" && score == 0 {
			continue
		}
		if score == 0 {
			score = 1
		}
		matches = append(matches, match{ext: ext, score: score * popularity(ext)})
	}
	return matches
}

func (s *memSvc) isBuiltin(namespace string) bool {
	for _, ns := range s.builtinNamespaces {
		if strings.EqualFold(ns, namespace) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func hasPlatformBuild(versions []*registry.ExtensionVersion, targetPlatform string) bool {
	for _, v := range versions {
		if v.TargetPlatform == targetPlatform || v.TargetPlatform == registry.TargetUniversal {
			return true
		}
	}
	return false
}

// textScore weighs where the query hits, name matches counting the most.
func textScore(ext *registry.Extension, latest *registry.ExtensionVersion, query string) float64 {
	if query == "" {
		return 0
	}
	var score float64
	if strings.Contains(strings.ToLower(ext.Name), query) {
		score += 10
	}
	if strings.Contains(strings.ToLower(ext.Namespace.Name), query) {
		score += 5
	}
	if strings.Contains(strings.ToLower(latest.DisplayName), query) {
		score += 3
	}
	if strings.Contains(strings.ToLower(latest.Description), query) {
		score++
	}
	for _, tag := range latest.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score++
			break
		}
	}
	return score
}

func popularity(ext *registry.Extension) float64 {
	p := 1.0 + math.Log(1+float64(ext.DownloadCount))/10.0
	if ext.AverageRating != nil {
		p += *ext.AverageRating / 10.0
	}
	return p
}

func sortMatches(matches []match, sortBy, sortOrder string) {
	asc := sortOrder == search.OrderAsc
	less := func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch sortBy {
		case search.SortDownloadCount:
			if a.ext.DownloadCount != b.ext.DownloadCount {
				return (a.ext.DownloadCount < b.ext.DownloadCount) == asc
			}
		case search.SortTimestamp:
			if !a.ext.LastUpdated.Equal(b.ext.LastUpdated) {
				return a.ext.LastUpdated.Before(b.ext.LastUpdated) == asc
			}
		case search.SortAverageRating:
			ar, br := a.ext.AverageRating, b.ext.AverageRating
			switch {
			case ar == nil && br != nil:
				return false // unrated last, both directions
			case ar != nil && br == nil:
				return true
			case ar != nil && br != nil && *ar != *br:
				return (*ar < *br) == asc
			}
		default:
			if a.score != b.score {
				return (a.score < b.score) == asc
			}
			if a.ext.DownloadCount != b.ext.DownloadCount {
				return a.ext.DownloadCount > b.ext.DownloadCount
			}
		}
		return a.ext.ID < b.ext.ID
	}
	sort.SliceStable(matches, less)
}
