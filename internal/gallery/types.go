package gallery

// QueryRequest is the extensionquery request document.
type QueryRequest struct {
	Filters    []QueryFilter `json:"filters"`
	AssetTypes []string      `json:"assetTypes,omitempty"`
	Flags      int           `json:"flags"`
}

// QueryFilter carries the criteria plus paging and sorting of one query.
// VS Code sends exactly one filter; additional filters are ignored.
type QueryFilter struct {
	Criteria   []QueryCriterion `json:"criteria"`
	PageNumber int              `json:"pageNumber"`
	PageSize   int              `json:"pageSize"`
	SortBy     int              `json:"sortBy"`
	SortOrder  int              `json:"sortOrder"`
}

// QueryCriterion is one filter criterion (type plus value).
type QueryCriterion struct {
	FilterType int    `json:"filterType"`
	Value      string `json:"value"`
}

// FindCriteria returns the values of all criteria with the given filter type,
// in request order.
func (f QueryFilter) FindCriteria(filterType int) []string {
	var values []string
	for _, c := range f.Criteria {
		if c.FilterType == filterType {
			values = append(values, c.Value)
		}
	}
	return values
}

// QueryResponse is the extensionquery response document.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}

// QueryResult holds one page of extensions plus the result metadata.
type QueryResult struct {
	Extensions []Extension      `json:"extensions"`
	Metadata   []ResultMetadata `json:"resultMetadata"`
}

// ResultMetadata carries counters about the result, most importantly the
// TotalCount item under the ResultCount type.
type ResultMetadata struct {
	MetadataType  string         `json:"metadataType"`
	MetadataItems []MetadataItem `json:"metadataItems"`
}

// MetadataItem is one named counter.
type MetadataItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Extension is the gallery representation of one extension.
type Extension struct {
	ExtensionID      string      `json:"extensionId"`
	ExtensionName    string      `json:"extensionName"`
	DisplayName      string      `json:"displayName,omitempty"`
	ShortDescription string      `json:"shortDescription,omitempty"`
	Publisher        Publisher   `json:"publisher"`
	Versions         []Version   `json:"versions,omitempty"`
	Statistics       []Statistic `json:"statistics,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Categories       []string    `json:"categories,omitempty"`
	ReleaseDate      string      `json:"releaseDate,omitempty"`
	PublishedDate    string      `json:"publishedDate,omitempty"`
	LastUpdated      string      `json:"lastUpdated,omitempty"`
	Flags            string      `json:"flags"`
}

// Publisher identifies the namespace an extension belongs to.
type Publisher struct {
	PublisherID      string  `json:"publisherId"`
	PublisherName    string  `json:"publisherName"`
	DisplayName      string  `json:"displayName"`
	Domain           *string `json:"domain"`
	IsDomainVerified bool    `json:"isDomainVerified"`
}

// Version is the gallery representation of one published build.
type Version struct {
	Version          string     `json:"version"`
	TargetPlatform   string     `json:"targetPlatform,omitempty"`
	LastUpdated      string     `json:"lastUpdated,omitempty"`
	AssetURI         string     `json:"assetUri,omitempty"`
	FallbackAssetURI string     `json:"fallbackAssetUri,omitempty"`
	Files            []File     `json:"files,omitempty"`
	Properties       []Property `json:"properties,omitempty"`
}

// File points at one downloadable asset of a version.
type File struct {
	AssetType string `json:"assetType"`
	Source    string `json:"source"`
}

// Property is a key/value pair attached to a version.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Statistic is one named statistic of an extension.
type Statistic struct {
	StatisticName string  `json:"statisticName"`
	Value         float64 `json:"value"`
}
