package registry

import "time"

// File resource types. Each published version owns a set of file resources;
// the type determines which gallery asset the file backs.
const (
	FileTypeDownload     = "download"
	FileTypeManifest     = "manifest"
	FileTypeReadme       = "readme"
	FileTypeChangelog    = "changelog"
	FileTypeLicense      = "license"
	FileTypeIcon         = "icon"
	FileTypeSignature    = "sig"
	FileTypeVSIXManifest = "vsixmanifest"
	FileTypeResource     = "resource"
	FileTypePublicKey    = "publickey"
)

// Storage types for file resource content.
const (
	StorageDatabase = "database"
	StorageLocal    = "local"
)

// Namespace groups extensions under a publisher name. Names are unique
// case-insensitively.
type Namespace struct {
	ID       int64
	PublicID string
	Name     string
}

// Extension is one extension within a namespace. Download count, rating and
// timestamps are denormalized here so queries and gallery responses do not
// need to aggregate over versions.
type Extension struct {
	ID            int64
	PublicID      string
	Name          string
	Namespace     *Namespace
	DownloadCount int64
	AverageRating *float64
	ReviewCount   int64
	PublishedDate time.Time
	LastUpdated   time.Time
	Active        bool
	Deprecated    bool
	Downloadable  bool
	Versions      []*ExtensionVersion
}

// ExtensionVersion is one published build of an extension. The pair
// (version, target platform) is unique per extension; a universal build uses
// TargetUniversal.
type ExtensionVersion struct {
	ID                 int64
	Extension          *Extension
	Version            string
	TargetPlatform     string
	Engines            []string
	Dependencies       []string
	BundledExtensions  []string
	Categories         []string
	Tags               []string
	LocalizedLanguages []string
	Preview            bool
	PreRelease         bool
	Active             bool
	Timestamp          time.Time
	DisplayName        string
	Description        string
	License            string
	Repository         string
	SponsorLink        string
	GalleryColor       string
	GalleryTheme       string
	Web                bool
	SignatureKeyPair   *SignatureKeyPair
	Files              []*FileResource
}

// FileResource is one stored artifact of a version. Name is the path of the
// file inside the package (for resource entries) or the artifact file name.
// Content is set for database storage and nil for local storage.
type FileResource struct {
	ID        int64
	VersionID int64
	Name      string
	Type      string
	Storage   string
	Content   []byte
}

// SignatureKeyPair holds the ed25519 key material used to sign packages.
// Only one pair is active at a time; rotated pairs stay around so published
// signatures keep resolving.
type SignatureKeyPair struct {
	ID         int64
	PublicID   string
	PublicKey  []byte
	PrivateKey []byte
	Created    time.Time
	Active     bool
}

// FindFile returns the version's file resource of the given type, or nil.
func (v *ExtensionVersion) FindFile(fileType string) *FileResource {
	for _, f := range v.Files {
		if f.Type == fileType {
			return f
		}
	}
	return nil
}

// FindFileByName returns the resource-type file with the given package path,
// or nil. Comparison is case-sensitive, matching package contents.
func (v *ExtensionVersion) FindFileByName(name string) *FileResource {
	for _, f := range v.Files {
		if f.Type == FileTypeResource && f.Name == name {
			return f
		}
	}
	return nil
}

// NamespaceName returns the owning namespace name, tolerating partially
// loaded graphs.
func (e *Extension) NamespaceName() string {
	if e.Namespace == nil {
		return ""
	}
	return e.Namespace.Name
}
