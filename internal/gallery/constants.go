// Package gallery defines the VS Code Marketplace wire protocol: the
// extensionquery request and response documents, asset type identifiers and
// the rendering of domain entities into query results.
package gallery

import "github.com/BuckysMyHero/openvsx/internal/registry"

// Criterion filter types understood by extensionquery.
const (
	FilterTag              = 1
	FilterExtensionID      = 4
	FilterCategory         = 5
	FilterExtensionName    = 7
	FilterTarget           = 8
	FilterFeatured         = 9
	FilterSearchText       = 10
	FilterExcludeWithFlags = 12
)

// Query flags. Clients combine these in the request's flags bitmask to pick
// how much of the extension graph the response carries.
const (
	FlagIncludeVersions            = 0x1
	FlagIncludeFiles               = 0x2
	FlagIncludeCategoryAndTags     = 0x4
	FlagIncludeSharedAccounts      = 0x8
	FlagIncludeVersionProperties   = 0x10
	FlagExcludeNonValidated        = 0x20
	FlagIncludeInstallationTargets = 0x40
	FlagIncludeAssetURI            = 0x80
	FlagIncludeStatistics          = 0x100
	FlagIncludeLatestVersionOnly   = 0x200
	FlagUnpublished                = 0x1000
)

// Asset type identifiers used in file lists and asset URLs.
const (
	AssetVSIX         = "Microsoft.VisualStudio.Services.VSIXPackage"
	AssetManifest     = "Microsoft.VisualStudio.Code.Manifest"
	AssetDetails      = "Microsoft.VisualStudio.Services.Content.Details"
	AssetChangelog    = "Microsoft.VisualStudio.Services.Content.Changelog"
	AssetLicense      = "Microsoft.VisualStudio.Services.Content.License"
	AssetIcon         = "Microsoft.VisualStudio.Services.Icons.Default"
	AssetSignature    = "Microsoft.VisualStudio.Services.VsixSignature"
	AssetVsixManifest = "Microsoft.VisualStudio.Services.VsixManifest"
	AssetPublicKey    = "Microsoft.VisualStudio.Services.PublicKey"
	AssetWebResources = "Microsoft.VisualStudio.Code.WebResources"
)

// Version property keys.
const (
	PropEngine             = "Microsoft.VisualStudio.Code.Engine"
	PropDependency         = "Microsoft.VisualStudio.Code.ExtensionDependencies"
	PropExtensionPack      = "Microsoft.VisualStudio.Code.ExtensionPack"
	PropLocalizedLanguages = "Microsoft.VisualStudio.Code.LocalizedLanguages"
	PropPreRelease         = "Microsoft.VisualStudio.Code.PreRelease"
	PropWebExtension       = "Microsoft.VisualStudio.Code.WebExtension"
	PropSponsorLink        = "Microsoft.VisualStudio.Code.SponsorLink"
	PropRepository         = "Microsoft.VisualStudio.Services.Links.Source"
)

// Statistic names.
const (
	StatInstall       = "install"
	StatAverageRating = "averagerating"
	StatRatingCount   = "ratingcount"
)

// FlagPreview marks an extension whose latest version is a preview build.
const FlagPreview = "preview"

// assetToFileType maps simple asset types to stored file resource types.
// WebResources and PublicKey need extra handling and are not listed.
var assetToFileType = map[string]string{
	AssetVSIX:         registry.FileTypeDownload,
	AssetManifest:     registry.FileTypeManifest,
	AssetDetails:      registry.FileTypeReadme,
	AssetChangelog:    registry.FileTypeChangelog,
	AssetLicense:      registry.FileTypeLicense,
	AssetIcon:         registry.FileTypeIcon,
	AssetSignature:    registry.FileTypeSignature,
	AssetVsixManifest: registry.FileTypeVSIXManifest,
}

// FileTypeForAsset resolves an asset type identifier to the stored file
// resource type it is served from.
func FileTypeForAsset(assetType string) (string, bool) {
	t, ok := assetToFileType[assetType]
	return t, ok
}

// AssetForFileType is the inverse of FileTypeForAsset, used when listing a
// version's files in query results.
func AssetForFileType(fileType string) (string, bool) {
	for asset, ft := range assetToFileType {
		if ft == fileType {
			return asset, true
		}
	}
	return "", false
}
