package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/db/store"
	"github.com/BuckysMyHero/openvsx/internal/otel"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/signing"
	"github.com/BuckysMyHero/openvsx/internal/storage"
)

// GetExtension returns one active extension with its active versions and
// their gallery files loaded
func (s *dbService) GetExtension(
	ctx context.Context,
	opts ...service.Option[service.GetExtensionOptions],
) (*registry.Extension, error) {
	ctx, span := s.startSpan(ctx, "dbService.GetExtension")
	defer span.End()

	o := service.GetExtensionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
	}

	ref := o.PublicID
	if ref == "" {
		if o.Namespace == "" || o.Name == "" {
			err := fmt.Errorf("an extension id or a namespace and name are required")
			otel.RecordError(span, err)
			return nil, err
		}
		ref = o.Namespace + "." + o.Name
		span.SetAttributes(otel.AttrNamespace.String(o.Namespace), otel.AttrExtension.String(o.Name))
	}

	queries := store.New(s.pool)

	var (
		ext *registry.Extension
		err error
	)
	if o.PublicID != "" {
		ext, err = queries.FindActiveExtensionByPublicID(ctx, o.PublicID)
	} else {
		ext, err = queries.FindActiveExtension(ctx, o.Namespace, o.Name)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrExtensionNotFound, ref)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	if err := queries.LoadVersions(ctx, []*registry.Extension{ext}); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	if len(ext.Versions) == 0 {
		// An extension without active versions is invisible to the gallery.
		return nil, fmt.Errorf("%w: %s", service.ErrExtensionNotFound, ref)
	}

	return ext, nil
}

// SearchExtensions returns one page of active extensions plus the total
// match count
func (s *dbService) SearchExtensions(
	ctx context.Context,
	opts ...service.Option[service.SearchExtensionsOptions],
) ([]*registry.Extension, int64, error) {
	ctx, span := s.startSpan(ctx, "dbService.SearchExtensions")
	defer span.End()
	start := time.Now()

	o := service.SearchExtensionsOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			otel.RecordError(span, err)
			return nil, 0, err
		}
	}
	span.SetAttributes(otel.AttrPageSize.Int(o.Size))

	ids, total, err := s.searcher.Search(ctx, search.Options{
		Query:             o.Query,
		Category:          o.Category,
		TargetPlatform:    o.TargetPlatform,
		Size:              o.Size,
		Offset:            o.Offset,
		SortBy:            o.SortBy,
		SortOrder:         o.SortOrder,
		ExcludeNamespaces: s.builtinNamespaces,
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, 0, err
	}
	if len(ids) == 0 {
		return nil, total, nil
	}

	queries := store.New(s.pool)
	extensions, err := queries.FindActiveExtensionsByID(ctx, ids)
	if err != nil {
		otel.RecordError(span, err)
		return nil, 0, err
	}
	if err := queries.LoadVersions(ctx, extensions); err != nil {
		otel.RecordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(extensions)))
	slog.DebugContext(ctx, "Extensions searched",
		"duration_ms", time.Since(start).Milliseconds(),
		"query", o.Query,
		"results", len(extensions),
		"total", total,
		"request_id", middleware.GetReqID(ctx))

	return extensions, total, nil
}

// GetVersion resolves one active extension version together with its file
// index
func (s *dbService) GetVersion(
	ctx context.Context,
	opts ...service.Option[service.GetVersionOptions],
) (*registry.ExtensionVersion, error) {
	ctx, span := s.startSpan(ctx, "dbService.GetVersion")
	defer span.End()

	o := service.GetVersionOptions{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
	}
	if o.Namespace == "" || o.Extension == "" || o.Version == "" {
		err := fmt.Errorf("a namespace, extension name and version are required")
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		otel.AttrNamespace.String(o.Namespace),
		otel.AttrExtension.String(o.Extension),
		otel.AttrVersion.String(o.Version),
		otel.AttrTargetPlatform.String(o.TargetPlatform),
	)

	version, err := store.New(s.pool).FindActiveVersion(ctx, o.Namespace, o.Extension, o.Version, o.TargetPlatform)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s.%s %s", service.ErrVersionNotFound, o.Namespace, o.Extension, o.Version)
		}
		otel.RecordError(span, err)
		return nil, err
	}
	return version, nil
}

// OpenFile streams the content of a version's file resource from its storage
// backend
func (s *dbService) OpenFile(
	ctx context.Context,
	version *registry.ExtensionVersion,
	file *registry.FileResource,
) (io.ReadCloser, error) {
	ctx, span := s.startSpan(ctx, "dbService.OpenFile")
	defer span.End()
	span.SetAttributes(otel.AttrFileName.String(file.Name))

	reader, err := s.storage.Open(ctx, file, storage.KeyFor(version, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrFileNotFound, file.Name)
		}
		otel.RecordError(span, err)
		return nil, err
	}
	return reader, nil
}

// IncrementDownloads bumps an extension's download counter
func (s *dbService) IncrementDownloads(ctx context.Context, extensionID int64) error {
	ctx, span := s.startSpan(ctx, "dbService.IncrementDownloads")
	defer span.End()

	if err := store.New(s.pool).IncrementDownloadCount(ctx, extensionID); err != nil {
		otel.RecordError(span, err)
		return err
	}
	return nil
}

// GetPublicKey returns the PEM-encoded public key of a signing key pair
func (s *dbService) GetPublicKey(ctx context.Context, publicID string) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "dbService.GetPublicKey")
	defer span.End()

	if pem, ok := s.publicKeys.Get(publicID); ok {
		return pem, nil
	}

	keyPair, err := store.New(s.pool).FindKeyPair(ctx, publicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrKeyPairNotFound, publicID)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	pem, err := signing.PublicKeyPEM(keyPair)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	s.publicKeys.Add(publicID, pem)
	return pem, nil
}
