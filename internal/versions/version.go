package versions

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknownStr = "unknown"

// Populated at build time via -ldflags. A plain `go build` leaves the
// defaults in place and the values are recovered from the embedded VCS
// stamp instead.
var (
	// Version is the release version of the gallery server
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = unknownStr
	// BuildDate is the date when the binary was built
	BuildDate = unknownStr
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo reports the version of the running binary, filling in
// whatever the linker did not set from the module's VCS build settings.
func GetVersionInfo() VersionInfo {
	version, commit, buildDate := Version, Commit, BuildDate

	if strings.HasPrefix(version, "dev") {
		commit, buildDate = fillFromBuildInfo(commit, buildDate)
	}
	if buildDate != unknownStr {
		buildDate = formatBuildDate(buildDate)
	}
	if version == "dev" {
		version = devVersion(commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// fillFromBuildInfo recovers the commit and build time from the VCS stamp
// that go build embeds, keeping any value already set by the linker.
func fillFromBuildInfo(commit, buildDate string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, buildDate
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == unknownStr {
				commit = setting.Value
			}
		case "vcs.time":
			if buildDate == unknownStr {
				buildDate = setting.Value
			}
		}
	}
	return commit, buildDate
}

// formatBuildDate renders an RFC 3339 build timestamp in a friendlier form,
// passing through values that do not parse.
func formatBuildDate(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// devVersion names an untagged build after the commit it was built from.
func devVersion(commit string) string {
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return "build-" + commit
}
