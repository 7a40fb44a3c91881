package service

import (
	"fmt"

	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
)

// WithExtensionID sets the extension public id for the GetExtension operation
func WithExtensionID(publicID string) Option[GetExtensionOptions] {
	return func(o *GetExtensionOptions) error {
		if publicID == "" {
			return fmt.Errorf("invalid extension id: %s", publicID)
		}
		o.PublicID = publicID
		return nil
	}
}

// WithExtensionName sets the namespace and extension name for the
// GetExtension or GetVersion operation
func WithExtensionName[T GetExtensionOptions | GetVersionOptions](namespace, name string) Option[T] {
	return func(o *T) error {
		if namespace == "" {
			return fmt.Errorf("invalid namespace: %s", namespace)
		}
		if name == "" {
			return fmt.Errorf("invalid extension name: %s", name)
		}
		switch o := any(o).(type) {
		case *GetExtensionOptions:
			o.Namespace = namespace
			o.Name = name
		case *GetVersionOptions:
			o.Namespace = namespace
			o.Extension = name
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithTargetPlatform sets the target platform for the GetExtension,
// SearchExtensions, or GetVersion operation
func WithTargetPlatform[T GetExtensionOptions | SearchExtensionsOptions | GetVersionOptions](
	targetPlatform string,
) Option[T] {
	return func(o *T) error {
		if !registry.IsValidTargetPlatform(targetPlatform) {
			return fmt.Errorf("invalid target platform: %s", targetPlatform)
		}
		switch o := any(o).(type) {
		case *GetExtensionOptions:
			// Narrowing happens when versions are rendered; the lookup
			// itself always loads the full active version list.
		case *SearchExtensionsOptions:
			o.TargetPlatform = targetPlatform
		case *GetVersionOptions:
			o.TargetPlatform = targetPlatform
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithVersion sets the version for the GetVersion operation
func WithVersion(version string) Option[GetVersionOptions] {
	return func(o *GetVersionOptions) error {
		if version == "" {
			return fmt.Errorf("invalid version: %s", version)
		}
		o.Version = version
		return nil
	}
}

// WithQuery sets the search text for the SearchExtensions operation
func WithQuery(query string) Option[SearchExtensionsOptions] {
	return func(o *SearchExtensionsOptions) error {
		if query == "" {
			return fmt.Errorf("invalid query: %s", query)
		}
		o.Query = query
		return nil
	}
}

// WithCategory sets the category for the SearchExtensions operation
func WithCategory(category string) Option[SearchExtensionsOptions] {
	return func(o *SearchExtensionsOptions) error {
		if category == "" {
			return fmt.Errorf("invalid category: %s", category)
		}
		o.Category = category
		return nil
	}
}

// WithPage sets the page size and offset for the SearchExtensions operation
func WithPage(size, offset int) Option[SearchExtensionsOptions] {
	return func(o *SearchExtensionsOptions) error {
		if size <= 0 {
			return fmt.Errorf("invalid page size: %d", size)
		}
		if offset < 0 {
			return fmt.Errorf("invalid page offset: %d", offset)
		}
		o.Size = size
		o.Offset = offset
		return nil
	}
}

// WithSortBy sets the sort key for the SearchExtensions operation
func WithSortBy(sortBy string) Option[SearchExtensionsOptions] {
	return func(o *SearchExtensionsOptions) error {
		switch sortBy {
		case search.SortRelevance, search.SortDownloadCount, search.SortTimestamp, search.SortAverageRating:
			o.SortBy = sortBy
			return nil
		default:
			return fmt.Errorf("invalid sort key: %s", sortBy)
		}
	}
}

// WithSortOrder sets the sort order for the SearchExtensions operation
func WithSortOrder(sortOrder string) Option[SearchExtensionsOptions] {
	return func(o *SearchExtensionsOptions) error {
		switch sortOrder {
		case search.OrderAsc, search.OrderDesc:
			o.SortOrder = sortOrder
			return nil
		default:
			return fmt.Errorf("invalid sort order: %s", sortOrder)
		}
	}
}

// WithPackage sets the processed package for the PublishExtension operation
func WithPackage(pkg *publish.Package) Option[PublishExtensionOptions] {
	return func(o *PublishExtensionOptions) error {
		if pkg == nil {
			return fmt.Errorf("package is required")
		}
		o.Package = pkg
		return nil
	}
}
