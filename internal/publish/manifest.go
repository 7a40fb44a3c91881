package publish

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/BuckysMyHero/openvsx/internal/gallery"
	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// manifest is the subset of extension/package.json the gallery cares about.
type manifest struct {
	Name                  string            `json:"name"`
	Publisher             string            `json:"publisher"`
	Version               string            `json:"version"`
	DisplayName           string            `json:"displayName"`
	Description           string            `json:"description"`
	Engines               map[string]string `json:"engines"`
	Categories            []string          `json:"categories"`
	Keywords              []string          `json:"keywords"`
	ExtensionDependencies []string          `json:"extensionDependencies"`
	ExtensionPack         []string          `json:"extensionPack"`
	ExtensionKind         []string          `json:"extensionKind"`
	Preview               bool              `json:"preview"`
	License               string            `json:"license"`
	Icon                  string            `json:"icon"`
	Browser               string            `json:"browser"`
	Repository            json.RawMessage   `json:"repository"`
	Sponsor               *sponsor          `json:"sponsor"`
	GalleryBanner         *galleryBanner    `json:"galleryBanner"`
}

type sponsor struct {
	URL string `json:"url"`
}

type galleryBanner struct {
	Color string `json:"color"`
	Theme string `json:"theme"`
}

// vsixManifest is the subset of extension.vsixmanifest the gallery cares
// about. The target platform only appears here, not in package.json.
type vsixManifest struct {
	Metadata struct {
		Identity struct {
			ID             string `xml:"Id,attr"`
			Version        string `xml:"Version,attr"`
			Publisher      string `xml:"Publisher,attr"`
			TargetPlatform string `xml:"TargetPlatform,attr"`
		} `xml:"Identity"`
		Properties struct {
			Property []vsixProperty `xml:"Property"`
		} `xml:"Properties"`
	} `xml:"Metadata"`
}

type vsixProperty struct {
	ID    string `xml:"Id,attr"`
	Value string `xml:"Value,attr"`
}

// applyManifest fills the package metadata from extension/package.json.
func (pkg *Package) applyManifest(data []byte) error {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("invalid package.json: %w", err)
	}

	pkg.Namespace = m.Publisher
	pkg.Name = m.Name
	pkg.Version = m.Version
	pkg.DisplayName = m.DisplayName
	pkg.Description = m.Description
	pkg.License = m.License
	pkg.Repository = repositoryURL(m.Repository)
	pkg.Engines = engineList(m.Engines)
	pkg.Dependencies = m.ExtensionDependencies
	pkg.BundledExtensions = m.ExtensionPack
	pkg.Categories = m.Categories
	pkg.Tags = m.Keywords
	pkg.Preview = m.Preview
	pkg.Web = m.Browser != "" || slices.Contains(m.ExtensionKind, "web")
	pkg.iconPath = strings.TrimPrefix(strings.ReplaceAll(m.Icon, "\\", "/"), "./")
	if m.Sponsor != nil {
		pkg.SponsorLink = m.Sponsor.URL
	}
	if m.GalleryBanner != nil {
		pkg.GalleryColor = m.GalleryBanner.Color
		pkg.GalleryTheme = m.GalleryBanner.Theme
	}
	return nil
}

// applyVsixManifest fills the target platform and the property-carried
// metadata from extension.vsixmanifest.
func (pkg *Package) applyVsixManifest(data []byte) error {
	var m vsixManifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("invalid extension.vsixmanifest: %w", err)
	}

	pkg.TargetPlatform = registry.NormalizeTargetPlatform(m.Metadata.Identity.TargetPlatform)
	for _, p := range m.Metadata.Properties.Property {
		switch p.ID {
		case gallery.PropPreRelease:
			pkg.PreRelease = p.Value == "true"
		case gallery.PropLocalizedLanguages:
			pkg.LocalizedLanguages = splitList(p.Value)
		case gallery.PropSponsorLink:
			if pkg.SponsorLink == "" {
				pkg.SponsorLink = p.Value
			}
		}
	}
	return nil
}

// repositoryURL normalizes the manifest repository field, which is either a
// plain URL string or an object with a url property.
func repositoryURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// engineList flattens the engines map into sorted "name@constraint" entries.
func engineList(engines map[string]string) []string {
	if len(engines) == 0 {
		return nil
	}
	out := make([]string, 0, len(engines))
	for name, constraint := range engines {
		out = append(out, name+"@"+constraint)
	}
	sort.Strings(out)
	return out
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
