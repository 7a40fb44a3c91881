package registry

// Target platform names as published by VS Code. TargetUniversal marks a
// build that runs everywhere; the rest qualify platform-specific builds.
const (
	TargetUniversal   = "universal"
	TargetWin32X64    = "win32-x64"
	TargetWin32IA32   = "win32-ia32"
	TargetWin32ARM64  = "win32-arm64"
	TargetLinuxX64    = "linux-x64"
	TargetLinuxARM64  = "linux-arm64"
	TargetLinuxARMHF  = "linux-armhf"
	TargetAlpineX64   = "alpine-x64"
	TargetAlpineARM64 = "alpine-arm64"
	TargetDarwinX64   = "darwin-x64"
	TargetDarwinARM64 = "darwin-arm64"
	TargetWeb         = "web"
)

// targetPlatforms lists all valid platforms in preference order. The order
// breaks ties when several builds share a version string: universal wins,
// then the platforms in this sequence.
var targetPlatforms = []string{
	TargetUniversal,
	TargetWin32X64,
	TargetWin32IA32,
	TargetWin32ARM64,
	TargetLinuxX64,
	TargetLinuxARM64,
	TargetLinuxARMHF,
	TargetAlpineX64,
	TargetAlpineARM64,
	TargetDarwinX64,
	TargetDarwinARM64,
	TargetWeb,
}

// TargetPlatforms returns all valid target platform names in preference
// order. The returned slice must not be modified.
func TargetPlatforms() []string {
	return targetPlatforms
}

// IsValidTargetPlatform reports whether name is a known target platform.
func IsValidTargetPlatform(name string) bool {
	for _, p := range targetPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

// TargetPlatformRank returns the preference rank of a platform, lower is
// better. Unknown platforms rank after all known ones.
func TargetPlatformRank(name string) int {
	for i, p := range targetPlatforms {
		if p == name {
			return i
		}
	}
	return len(targetPlatforms)
}

// NormalizeTargetPlatform maps an empty platform to TargetUniversal and
// returns other values unchanged.
func NormalizeTargetPlatform(name string) string {
	if name == "" {
		return TargetUniversal
	}
	return name
}
