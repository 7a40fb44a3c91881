// Package search implements the database-backed extension search: relevance
// scoring, sorting and paging over the entity tables.
package search

// Sort keys.
const (
	SortRelevance     = "relevance"
	SortDownloadCount = "downloadCount"
	SortTimestamp     = "timestamp"
	SortAverageRating = "averageRating"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Default and maximum page sizes.
const (
	DefaultSize = 20
	MaxSize     = 1000
)

// Options selects and orders one page of search results.
type Options struct {
	// Query is the free text matched against name, namespace, display
	// name, description and tags. Empty matches everything.
	Query string

	// Category narrows results to extensions whose latest version lists
	// the category. Comparison is case-insensitive.
	Category string

	// TargetPlatform narrows results to extensions with a build for the
	// platform or a universal build. Empty means any platform.
	TargetPlatform string

	// Size and Offset page the result. Size zero falls back to DefaultSize
	// and is capped at MaxSize.
	Size   int
	Offset int

	// SortBy is one of the Sort* keys, defaulting to SortRelevance.
	SortBy string

	// SortOrder is OrderAsc or OrderDesc, defaulting to OrderDesc.
	SortOrder string

	// ExcludeNamespaces lists namespaces that never match, regardless of
	// the other criteria. Comparison is case-insensitive.
	ExcludeNamespaces []string
}

// normalized returns a copy with defaults applied and the size capped.
func (o Options) normalized() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Size > MaxSize {
		o.Size = MaxSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortBy == "" {
		o.SortBy = SortRelevance
	}
	if o.SortOrder == "" {
		o.SortOrder = OrderDesc
	}
	return o
}
