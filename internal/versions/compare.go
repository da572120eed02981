package versions

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsAtLeast reports whether the version reported by a remote component
// satisfies the required minimum. Moonraker reports development builds as
// "v0.8.0-297-g1234abcd" (commits on top of the last tag), so everything
// after the first dash is dropped before comparing. It falls back to
// lexicographic string comparison when either side is not valid semver.
func IsAtLeast(version, minimum string) bool {
	base := baseVersion(version)
	minBase := baseVersion(minimum)

	verSemver, errVer := semver.NewVersion(base)
	minSemver, errMin := semver.NewVersion(minBase)

	if errVer != nil || errMin != nil {
		// Fallback to string comparison if semver parsing fails
		return base >= minBase
	}

	return !verSemver.LessThan(minSemver)
}

// baseVersion strips the commit-count suffix from a development build version.
func baseVersion(v string) string {
	if i := strings.Index(v, "-"); i >= 0 {
		return v[:i]
	}
	return v
}
