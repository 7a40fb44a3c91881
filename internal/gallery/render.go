package gallery

import (
	"net/url"
	"strings"
	"time"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// Renderer turns registry entities into gallery wire types. BaseURL is the
// absolute server base (scheme://host[:port], no trailing slash) used for
// asset URLs; Flags and TargetPlatform come from the query.
type Renderer struct {
	BaseURL        string
	Flags          int
	TargetPlatform string
}

// NewRenderer builds a renderer for one query.
func NewRenderer(baseURL string, flags int, targetPlatform string) *Renderer {
	return &Renderer{BaseURL: strings.TrimSuffix(baseURL, "/"), Flags: flags, TargetPlatform: targetPlatform}
}

func (r *Renderer) has(flag int) bool {
	return r.Flags&flag != 0
}

// Extension renders one extension with the version detail the flags ask for.
// Returns false when the extension has no active version to represent it.
func (r *Renderer) Extension(ext *registry.Extension) (Extension, bool) {
	actives := registry.ActiveVersions(ext.Versions, r.TargetPlatform)
	if len(actives) == 0 {
		return Extension{}, false
	}
	latest := actives[0]

	out := Extension{
		ExtensionID:      ext.PublicID,
		ExtensionName:    ext.Name,
		DisplayName:      latest.DisplayName,
		ShortDescription: latest.Description,
		Publisher: Publisher{
			PublisherID:   ext.Namespace.PublicID,
			PublisherName: ext.Namespace.Name,
			DisplayName:   ext.Namespace.Name,
		},
		ReleaseDate:   formatTime(ext.PublishedDate),
		PublishedDate: formatTime(ext.PublishedDate),
		LastUpdated:   formatTime(ext.LastUpdated),
	}
	if latest.Preview {
		out.Flags = FlagPreview
	}

	if r.has(FlagIncludeCategoryAndTags) {
		out.Categories = latest.Categories
		out.Tags = latest.Tags
	}

	if r.has(FlagIncludeStatistics) {
		out.Statistics = []Statistic{{StatisticName: StatInstall, Value: float64(ext.DownloadCount)}}
		if ext.AverageRating != nil {
			out.Statistics = append(out.Statistics,
				Statistic{StatisticName: StatAverageRating, Value: *ext.AverageRating},
				Statistic{StatisticName: StatRatingCount, Value: float64(ext.ReviewCount)},
			)
		}
	}

	switch {
	case r.has(FlagIncludeLatestVersionOnly):
		out.Versions = r.versions(ext, registry.LatestBuilds(actives))
	case r.has(FlagIncludeVersions) || r.has(FlagIncludeFiles):
		out.Versions = r.versions(ext, actives)
	}

	return out, true
}

func (r *Renderer) versions(ext *registry.Extension, list []*registry.ExtensionVersion) []Version {
	out := make([]Version, 0, len(list))
	for _, v := range list {
		out = append(out, r.version(ext, v))
	}
	return out
}

func (r *Renderer) version(ext *registry.Extension, v *registry.ExtensionVersion) Version {
	out := Version{
		Version:     v.Version,
		LastUpdated: formatTime(v.Timestamp),
	}
	if v.TargetPlatform != registry.TargetUniversal {
		out.TargetPlatform = v.TargetPlatform
	}

	if r.has(FlagIncludeAssetURI) {
		out.AssetURI = r.assetBase(ext, v)
		out.FallbackAssetURI = out.AssetURI
	}
	if r.has(FlagIncludeFiles) {
		out.Files = r.files(ext, v)
	}
	if r.has(FlagIncludeVersionProperties) {
		out.Properties = versionProperties(v)
	}
	return out
}

// files lists the version's assets as absolute source URLs. Resource entries
// are not assets; the public key URL is added when the version is signed.
func (r *Renderer) files(ext *registry.Extension, v *registry.ExtensionVersion) []File {
	var out []File
	for _, f := range v.Files {
		assetType, ok := AssetForFileType(f.Type)
		if !ok {
			continue
		}
		out = append(out, File{AssetType: assetType, Source: r.AssetURL(ext.NamespaceName(), ext.Name, v.Version, assetType, v.TargetPlatform)})
	}
	if v.SignatureKeyPair != nil {
		out = append(out, File{AssetType: AssetPublicKey, Source: r.PublicKeyURL(v.SignatureKeyPair.PublicID)})
	}
	return out
}

// AssetURL builds the absolute asset URL for one asset type of a version.
// The targetPlatform query is appended for platform-specific builds.
func (r *Renderer) AssetURL(namespace, extension, version, assetType, targetPlatform string) string {
	u := joinURL(r.BaseURL, "vscode", "asset", namespace, extension, version, assetType)
	if targetPlatform != "" && targetPlatform != registry.TargetUniversal {
		u += "?targetPlatform=" + url.QueryEscape(targetPlatform)
	}
	return u
}

// PublicKeyURL builds the absolute URL serving a key pair's public key.
func (r *Renderer) PublicKeyURL(publicID string) string {
	return joinURL(r.BaseURL, "api", "-", "public-key", publicID)
}

func (r *Renderer) assetBase(ext *registry.Extension, v *registry.ExtensionVersion) string {
	return joinURL(r.BaseURL, "vscode", "asset", ext.NamespaceName(), ext.Name, v.Version)
}

// versionProperties renders the property list of one version.
func versionProperties(v *registry.ExtensionVersion) []Property {
	props := []Property{
		{Key: PropDependency, Value: strings.Join(v.Dependencies, ",")},
		{Key: PropExtensionPack, Value: strings.Join(v.BundledExtensions, ",")},
		{Key: PropLocalizedLanguages, Value: strings.Join(v.LocalizedLanguages, ",")},
	}
	if engine := vscodeEngine(v.Engines); engine != "" {
		props = append(props, Property{Key: PropEngine, Value: engine})
	}
	if v.PreRelease {
		props = append(props, Property{Key: PropPreRelease, Value: "true"})
	}
	if v.Web {
		props = append(props, Property{Key: PropWebExtension, Value: "true"})
	}
	if v.SponsorLink != "" {
		props = append(props, Property{Key: PropSponsorLink, Value: v.SponsorLink})
	}
	if v.Repository != "" {
		props = append(props, Property{Key: PropRepository, Value: v.Repository})
	}
	return props
}

// vscodeEngine extracts the vscode engine constraint from the stored
// "name@constraint" engine list.
func vscodeEngine(engines []string) string {
	for _, e := range engines {
		if c, ok := strings.CutPrefix(e, "vscode@"); ok {
			return c
		}
	}
	return ""
}

// NewQueryResponse wraps a page of extensions with the total count metadata.
func NewQueryResponse(extensions []Extension, totalCount int64) QueryResponse {
	if extensions == nil {
		extensions = []Extension{}
	}
	return QueryResponse{
		Results: []QueryResult{{
			Extensions: extensions,
			Metadata: []ResultMetadata{{
				MetadataType: "ResultCount",
				MetadataItems: []MetadataItem{
					{Name: "TotalCount", Count: totalCount},
				},
			}},
		}},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// joinURL appends escaped path segments to a base URL.
func joinURL(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
