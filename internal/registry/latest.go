package registry

import (
	"sort"

	"github.com/BuckysMyHero/openvsx/internal/versions"
)

// SortVersions orders versions newest first: by version string (semver when
// parsable), then by target platform preference for builds sharing a version
// string.
func SortVersions(list []*ExtensionVersion) {
	sort.SliceStable(list, func(i, j int) bool {
		if c := versions.Compare(list[i].Version, list[j].Version); c != 0 {
			return c > 0
		}
		return TargetPlatformRank(list[i].TargetPlatform) < TargetPlatformRank(list[j].TargetPlatform)
	})
}

// ActiveVersions filters to active versions, optionally restricted to one
// target platform, sorted newest first. An empty targetPlatform matches all
// platforms.
func ActiveVersions(list []*ExtensionVersion, targetPlatform string) []*ExtensionVersion {
	var out []*ExtensionVersion
	for _, v := range list {
		if !v.Active {
			continue
		}
		if targetPlatform != "" && v.TargetPlatform != targetPlatform {
			continue
		}
		out = append(out, v)
	}
	SortVersions(out)
	return out
}

// LatestVersion picks the newest active version. When includePreRelease is
// false and at least one stable build exists, pre-release builds are skipped.
// Returns nil when nothing matches.
func LatestVersion(list []*ExtensionVersion, targetPlatform string, includePreRelease bool) *ExtensionVersion {
	candidates := ActiveVersions(list, targetPlatform)
	if len(candidates) == 0 {
		return nil
	}
	if !includePreRelease {
		for _, v := range candidates {
			if !v.PreRelease {
				return v
			}
		}
	}
	return candidates[0]
}

// LatestBuilds reduces a sorted version list to the builds of its newest
// version string. Platform variants of that version all stay: the gallery's
// latest-version-only flag expects one entry per target platform so clients
// can pick their build.
func LatestBuilds(list []*ExtensionVersion) []*ExtensionVersion {
	if len(list) == 0 {
		return nil
	}
	latest := list[0].Version
	var out []*ExtensionVersion
	for _, v := range list {
		if v.Version == latest {
			out = append(out, v)
		}
	}
	return out
}
