package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// hostOSNames translates GOOS values into the raw OS vocabulary understood by
// ResolveOSFamily.
var hostOSNames = map[string]string{
	"windows": "windows",
	"linux":   "linux",
	"android": "linux",
	"darwin":  "mac os x",
	"ios":     "mac os x",
}

// hostArchNames translates GOARCH values and kernel machine names into the raw
// architecture vocabulary understood by ResolveArch.
var hostArchNames = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "x86_64",
	"arm64":   "aarch64",
	"aarch64": "aarch64",
	"386":     "x86",
	"i386":    "i386",
	"i686":    "i686",
	"arm":     "arm",
	"armv6l":  "arm",
	"armv7l":  "arm",
	"armv8l":  "arm",
}

// hostOSName returns the raw OS name for a GOOS value. Unknown values pass
// through so that resolution reports them.
func hostOSName(goos string) string {
	if name, ok := hostOSNames[normalizePlatform(goos)]; ok {
		return name
	}
	return goos
}

// hostArchName returns the raw arch name for a GOARCH or kernel machine value.
// Unknown values pass through so that resolution reports them.
func hostArchName(arch string) string {
	if name, ok := hostArchNames[normalizePlatform(arch)]; ok {
		return name
	}
	return arch
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}

func unsupported(kind, raw string) error {
	return fmt.Errorf("%w: %s %q", ErrUnsupportedPlatform, kind, raw)
}
