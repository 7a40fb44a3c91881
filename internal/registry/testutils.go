package registry

import "time"

// Test fixture builders. These live in the package proper (not _test.go) so
// service implementations and API tests across the module can assemble
// extension graphs without duplicating wiring code.

// ExtensionOption customizes a test extension.
type ExtensionOption func(*Extension)

// VersionOption customizes a test extension version.
type VersionOption func(*ExtensionVersion)

// NewTestExtension builds an active extension under the given namespace with
// sensible defaults. Versions added through WithVersions are back-linked to
// the extension.
func NewTestExtension(namespace, name string, opts ...ExtensionOption) *Extension {
	ext := &Extension{
		PublicID: "ext-" + namespace + "-" + name,
		Name:     name,
		Namespace: &Namespace{
			PublicID: "ns-" + namespace,
			Name:     namespace,
		},
		PublishedDate: time.Date(1999, 12, 1, 9, 0, 0, 0, time.UTC),
		LastUpdated:   time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC),
		Active:        true,
		Downloadable:  true,
	}
	for _, opt := range opts {
		opt(ext)
	}
	for _, v := range ext.Versions {
		v.Extension = ext
	}
	return ext
}

// WithPublicID sets the extension's public id.
func WithPublicID(id string) ExtensionOption {
	return func(e *Extension) { e.PublicID = id }
}

// WithNamespacePublicID sets the owning namespace's public id.
func WithNamespacePublicID(id string) ExtensionOption {
	return func(e *Extension) { e.Namespace.PublicID = id }
}

// WithDownloadCount sets the download counter.
func WithDownloadCount(n int64) ExtensionOption {
	return func(e *Extension) { e.DownloadCount = n }
}

// WithRating sets the average rating and review count.
func WithRating(average float64, reviews int64) ExtensionOption {
	return func(e *Extension) {
		e.AverageRating = &average
		e.ReviewCount = reviews
	}
}

// WithExtensionTimes sets published and last-updated timestamps.
func WithExtensionTimes(published, updated time.Time) ExtensionOption {
	return func(e *Extension) {
		e.PublishedDate = published
		e.LastUpdated = updated
	}
}

// WithInactive marks the extension inactive.
func WithInactive() ExtensionOption {
	return func(e *Extension) { e.Active = false }
}

// WithVersions appends versions to the extension.
func WithVersions(vs ...*ExtensionVersion) ExtensionOption {
	return func(e *Extension) { e.Versions = append(e.Versions, vs...) }
}

// NewTestVersion builds an active universal version with defaults matching a
// typical published build.
func NewTestVersion(version string, opts ...VersionOption) *ExtensionVersion {
	v := &ExtensionVersion{
		Version:        version,
		TargetPlatform: TargetUniversal,
		Active:         true,
		Timestamp:      time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithTargetPlatform sets the version's target platform.
func WithTargetPlatform(tp string) VersionOption {
	return func(v *ExtensionVersion) { v.TargetPlatform = tp }
}

// WithDisplayName sets the display name.
func WithDisplayName(name string) VersionOption {
	return func(v *ExtensionVersion) { v.DisplayName = name }
}

// WithDescription sets the description.
func WithDescription(desc string) VersionOption {
	return func(v *ExtensionVersion) { v.Description = desc }
}

// WithEngines sets engine constraints ("vscode@^1.31.0" form).
func WithEngines(engines ...string) VersionOption {
	return func(v *ExtensionVersion) { v.Engines = engines }
}

// WithDependencies sets extension dependencies ("ns.name" form).
func WithDependencies(deps ...string) VersionOption {
	return func(v *ExtensionVersion) { v.Dependencies = deps }
}

// WithBundledExtensions sets the extension pack contents.
func WithBundledExtensions(exts ...string) VersionOption {
	return func(v *ExtensionVersion) { v.BundledExtensions = exts }
}

// WithCategories sets the categories.
func WithCategories(categories ...string) VersionOption {
	return func(v *ExtensionVersion) { v.Categories = categories }
}

// WithVersionTags sets the tags.
func WithVersionTags(tags ...string) VersionOption {
	return func(v *ExtensionVersion) { v.Tags = tags }
}

// WithLocalizedLanguages sets the localized language list.
func WithLocalizedLanguages(langs ...string) VersionOption {
	return func(v *ExtensionVersion) { v.LocalizedLanguages = langs }
}

// WithRepository sets the source repository URL.
func WithRepository(url string) VersionOption {
	return func(v *ExtensionVersion) { v.Repository = url }
}

// WithSponsorLink sets the sponsor link.
func WithSponsorLink(url string) VersionOption {
	return func(v *ExtensionVersion) { v.SponsorLink = url }
}

// WithPreRelease marks the version as a pre-release build.
func WithPreRelease() VersionOption {
	return func(v *ExtensionVersion) { v.PreRelease = true }
}

// WithPreview marks the version as a preview build.
func WithPreview() VersionOption {
	return func(v *ExtensionVersion) { v.Preview = true }
}

// WithWeb marks the version as a web extension.
func WithWeb() VersionOption {
	return func(v *ExtensionVersion) { v.Web = true }
}

// WithVersionInactive marks the version inactive.
func WithVersionInactive() VersionOption {
	return func(v *ExtensionVersion) { v.Active = false }
}

// WithTimestamp sets the publish timestamp.
func WithTimestamp(ts time.Time) VersionOption {
	return func(v *ExtensionVersion) { v.Timestamp = ts }
}

// WithKeyPair attaches an active signature key pair with the given public id.
func WithKeyPair(publicID string) VersionOption {
	return func(v *ExtensionVersion) {
		v.SignatureKeyPair = &SignatureKeyPair{
			PublicID: publicID,
			Created:  v.Timestamp,
			Active:   true,
		}
	}
}

// WithFiles appends file resources to the version.
func WithFiles(files ...*FileResource) VersionOption {
	return func(v *ExtensionVersion) { v.Files = append(v.Files, files...) }
}

// NewTestFile builds a database-stored file resource.
func NewTestFile(name, fileType string, content []byte) *FileResource {
	return &FileResource{
		Name:    name,
		Type:    fileType,
		Storage: StorageDatabase,
		Content: content,
	}
}
