package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BuckysMyHero/openvsx/internal/db/store"
	"github.com/BuckysMyHero/openvsx/internal/otel"
	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/signing"
	"github.com/BuckysMyHero/openvsx/internal/storage"
)

// PublishExtension ingests one processed extension package: it creates the
// namespace and extension rows on first publish, inserts the version and all
// its file resources, and signs the package when signing is enabled. The
// whole ingest runs in one serializable transaction; file content written to
// external storage is not rolled back on failure.
func (s *dbService) PublishExtension(
	ctx context.Context,
	opts ...service.Option[service.PublishExtensionOptions],
) (*registry.ExtensionVersion, error) {
	ctx, span := s.startSpan(ctx, "dbService.PublishExtension")
	defer span.End()
	start := time.Now()

	o := service.PublishExtensionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
	}
	pkg := o.Package
	if pkg == nil {
		err := fmt.Errorf("a processed package is required")
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		otel.AttrNamespace.String(pkg.Namespace),
		otel.AttrExtension.String(pkg.Name),
		otel.AttrVersion.String(pkg.Version),
		otel.AttrTargetPlatform.String(pkg.TargetPlatform),
	)

	if s.isBuiltinNamespace(pkg.Namespace) {
		err := fmt.Errorf("%w: %s", service.ErrBuiltInNamespace, pkg.Namespace)
		otel.RecordError(span, err)
		return nil, err
	}
	if s.requireLicense && !pkg.HasLicense() {
		err := fmt.Errorf("%w: %s.%s has no license", service.ErrLicenseRequired, pkg.Namespace, pkg.Name)
		otel.RecordError(span, err)
		return nil, err
	}

	// Begin transaction
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		err := tx.Rollback(ctx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "Failed to rollback transaction", "error", err)
		}
	}()

	queries := store.New(tx)
	now := time.Now().UTC()

	ns, err := queries.GetOrCreateNamespace(ctx, pkg.Namespace)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	ext, err := queries.GetOrCreateExtension(ctx, ns, pkg.Name, now)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	version := &registry.ExtensionVersion{
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
		keyPair, err := s.activeKeyPair(ctx, queries)
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		version.SignatureKeyPair = keyPair
		sigzip, err = signing.Sign(keyPair, pkg.Content)
		if err != nil {
			otel.RecordError(span, err)
			return nil, fmt.Errorf("failed to sign package: %w", err)
		}
	}

	if err := queries.InsertVersion(ctx, version); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			err = fmt.Errorf("%w: %s.%s %s (%s)",
				service.ErrVersionExists, pkg.Namespace, pkg.Name, pkg.Version, version.TargetPlatform)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	for _, entry := range versionFiles(version.ID, pkg, sigzip, s.storageType) {
		if err := s.storage.Store(ctx, entry.file, storage.KeyFor(version, entry.file), entry.content); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		if err := queries.InsertFile(ctx, entry.file); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		version.Files = append(version.Files, entry.file)
	}

	if err := queries.TouchExtension(ctx, ext.ID, now); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	ext.LastUpdated = now
	ext.Versions = append(ext.Versions, version)

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Extension published",
		"duration_ms", time.Since(start).Milliseconds(),
		"namespace", pkg.Namespace,
		"extension", pkg.Name,
		"version", pkg.Version,
		"target_platform", version.TargetPlatform,
		"files", len(version.Files),
		"request_id", middleware.GetReqID(ctx))

	return version, nil
}

// activeKeyPair loads the signing key pair, generating and storing one the
// first time signing is used.
func (s *dbService) activeKeyPair(ctx context.Context, queries *store.Queries) (*registry.SignatureKeyPair, error) {
	keyPair, err := queries.FindActiveKeyPair(ctx)
	if err == nil {
		return keyPair, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	keyPair, err = signing.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := queries.InsertKeyPair(ctx, keyPair); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Created signing key pair", "public_id", keyPair.PublicID)
	return keyPair, nil
}

// fileEntry pairs a file resource row with the content that backs it.
type fileEntry struct {
	file    *registry.FileResource
	content []byte
}

// versionFiles lays out the file resource rows of a freshly published
// version: the package download, the extracted artifacts, one resource row
// per package entry and, when signed, the signature archive.
func versionFiles(versionID int64, pkg *publish.Package, sigzip []byte, storageType string) []fileEntry {
	entries := make([]fileEntry, 0, len(pkg.Files)+len(pkg.Resources)+2)
	add := func(name, fileType string, content []byte) {
		entries = append(entries, fileEntry{
			file: &registry.FileResource{
				VersionID: versionID,
				Name:      name,
				Type:      fileType,
				Storage:   storageType,
			},
			content: content,
		})
	}

	add(pkg.DownloadName(), registry.FileTypeDownload, pkg.Content)
	for _, f := range pkg.Files {
		add(f.Name, f.Type, f.Content)
	}
	for _, r := range pkg.Resources {
		add(r.Name, r.Type, r.Content)
	}
	if sigzip != nil {
		add(pkg.SignatureName(), registry.FileTypeSignature, sigzip)
	}
	return entries
}
