// Package publish processes VSIX extension packages: it reads the package
// zip, validates and extracts the manifests and enumerates the contained
// resources for ingest.
package publish

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// Well-known package entry names.
const (
	manifestEntry     = "extension/package.json"
	vsixManifestEntry = "extension.vsixmanifest"
)

// maxEntrySize caps the decompressed size of a single package entry.
const maxEntrySize = 256 << 20

// File is one artifact extracted from a package. Artifact files carry their
// base name; resource files carry the full path inside the package.
type File struct {
	Name    string
	Type    string
	Content []byte
}

// Package is the processed form of one uploaded VSIX.
type Package struct {
	Namespace      string
	Name           string
	Version        string
	TargetPlatform string

	DisplayName        string
	Description        string
	License            string
	Repository         string
	SponsorLink        string
	GalleryColor       string
	GalleryTheme       string
	Engines            []string
	Dependencies       []string
	BundledExtensions  []string
	Categories         []string
	Tags               []string
	LocalizedLanguages []string
	Preview            bool
	PreRelease         bool
	Web                bool

	// Content is the package as uploaded.
	Content []byte

	// Files holds the extracted artifacts: manifest, vsixmanifest and,
	// when present, readme, changelog, license and icon.
	Files []File

	// Resources holds one entry per file in the package, named by path.
	Resources []File

	// iconPath is the manifest's icon path, relative to extension/.
	iconPath string
}

// DownloadName returns the file name the package download is stored under.
func (p *Package) DownloadName() string {
	if p.TargetPlatform == registry.TargetUniversal {
		return fmt.Sprintf("%s.%s-%s.vsix", p.Namespace, p.Name, p.Version)
	}
	return fmt.Sprintf("%s.%s-%s@%s.vsix", p.Namespace, p.Name, p.Version, p.TargetPlatform)
}

// SignatureName returns the file name the package signature is stored under.
func (p *Package) SignatureName() string {
	return strings.TrimSuffix(p.DownloadName(), ".vsix") + ".sigzip"
}

// HasLicense reports whether the package declares a license in its manifest
// or ships a license file.
func (p *Package) HasLicense() bool {
	if p.License != "" {
		return true
	}
	for _, f := range p.Files {
		if f.Type == registry.FileTypeLicense {
			return true
		}
	}
	return false
}

// Read processes a VSIX package held in memory. It returns an error when the
// content is not a zip, a required manifest is missing or invalid, or the
// declared target platform is unknown.
func Read(content []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a valid package: %w", err)
	}

	pkg := &Package{Content: content}

	manifestBytes, err := readEntry(zr, manifestEntry)
	if err != nil {
		return nil, err
	}
	if err := validateManifest(manifestBytes); err != nil {
		return nil, err
	}
	if err := pkg.applyManifest(manifestBytes); err != nil {
		return nil, err
	}

	vsixManifestBytes, err := readEntry(zr, vsixManifestEntry)
	if err != nil {
		return nil, err
	}
	if err := pkg.applyVsixManifest(vsixManifestBytes); err != nil {
		return nil, err
	}
	if !registry.IsValidTargetPlatform(pkg.TargetPlatform) {
		return nil, fmt.Errorf("unsupported target platform: %s", pkg.TargetPlatform)
	}

	pkg.Files = []File{
		{Name: path.Base(manifestEntry), Type: registry.FileTypeManifest, Content: manifestBytes},
		{Name: vsixManifestEntry, Type: registry.FileTypeVSIXManifest, Content: vsixManifestBytes},
	}
	if err := pkg.collectEntries(zr); err != nil {
		return nil, err
	}
	return pkg, nil
}

// collectEntries walks the zip once, recording every file as a resource and
// picking up the optional readme, changelog, license and icon artifacts.
func (pkg *Package) collectEntries(zr *zip.Reader) error {
	iconEntry := ""
	if pkg.iconPath != "" {
		iconEntry = "extension/" + pkg.iconPath
	}

	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readFile(f)
		if err != nil {
			return err
		}
		pkg.Resources = append(pkg.Resources, File{
			Name:    f.Name,
			Type:    registry.FileTypeResource,
			Content: data,
		})

		switch {
		case f.Name == iconEntry:
			pkg.addArtifact(registry.FileTypeIcon, f.Name, data)
		case matchesArtifact(f.Name, "readme"):
			pkg.addArtifact(registry.FileTypeReadme, f.Name, data)
		case matchesArtifact(f.Name, "changelog"):
			pkg.addArtifact(registry.FileTypeChangelog, f.Name, data)
		case matchesArtifact(f.Name, "license"):
			pkg.addArtifact(registry.FileTypeLicense, f.Name, data)
		}
	}
	return nil
}

// addArtifact records an artifact under its base name, keeping the first
// match when a package carries duplicates.
func (pkg *Package) addArtifact(fileType, entryName string, content []byte) {
	for _, f := range pkg.Files {
		if f.Type == fileType {
			return
		}
	}
	pkg.Files = append(pkg.Files, File{Name: path.Base(entryName), Type: fileType, Content: content})
}

// matchesArtifact reports whether the entry is the named documentation file
// directly under extension/, in any case and with any extension.
func matchesArtifact(entryName, artifact string) bool {
	dir, base := path.Split(entryName)
	if dir != "extension/" {
		return false
	}
	base = strings.ToLower(base)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext) == artifact
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readFile(f)
		}
	}
	return nil, fmt.Errorf("package has no %s entry", name)
}

func readFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, fmt.Errorf("package entry %s exceeds the size limit", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open package entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read package entry %s: %w", f.Name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("package entry %s exceeds the size limit", f.Name)
	}
	return data, nil
}
