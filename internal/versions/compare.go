// Package versions wraps semantic version comparison for extension version
// strings, which are usually but not always valid semver.
package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// It uses semantic versioning for comparison when both strings are valid semver,
// and falls back to lexicographic string comparison otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	return Compare(newVersion, oldVersion) > 0
}

// Compare orders two version strings, returning -1, 0 or 1. Valid semver
// strings compare semantically (pre-releases sort below their release); a
// valid semver sorts above a non-semver string; two non-semver strings
// compare lexicographically.
func Compare(a, b string) int {
	av, errA := semver.NewVersion(a)
	bv, errB := semver.NewVersion(b)

	switch {
	case errA == nil && errB == nil:
		return av.Compare(bv)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		switch {
		case a > b:
			return 1
		case a < b:
			return -1
		default:
			return 0
		}
	}
}

// IsPreRelease reports whether the version string carries a semver
// pre-release tag. Non-semver strings are never pre-releases.
func IsPreRelease(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}
