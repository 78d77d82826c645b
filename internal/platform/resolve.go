package platform

import "strings"

// ResolveOSFamily maps a raw OS name onto an OSFamily.
// Matching is case-insensitive: a "win" prefix is Windows, a "linux" prefix is
// Linux, and any name containing "mac" is macOS.
func ResolveOSFamily(raw string) (OSFamily, error) {
	// strings.ToLower uses Unicode case mapping and never consults a locale.
	name := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(name, "win"):
		return Windows, nil
	case strings.HasPrefix(name, "linux"):
		return Linux, nil
	case strings.Contains(name, "mac"):
		return MacOS, nil
	default:
		return 0, unsupported("os", raw)
	}
}

// ResolveArch maps a raw architecture name onto an Arch.
func ResolveArch(raw string) (Arch, error) {
	switch strings.ToLower(raw) {
	case "aarch64":
		return ARM64, nil
	case "arm":
		return ARM32, nil
	case "amd64", "ia64", "x86_64":
		return X86_64, nil
	case "x86", "i386", "i486", "i586", "i686":
		return X86_32, nil
	default:
		return 0, unsupported("arch", raw)
	}
}

// Resolve maps raw OS and architecture names onto a Descriptor.
func Resolve(rawOS, rawArch string) (Descriptor, error) {
	os, err := ResolveOSFamily(rawOS)
	if err != nil {
		return Descriptor{}, err
	}
	arch, err := ResolveArch(rawArch)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{OS: os, Arch: arch}, nil
}

// ArchiveExtension returns the release archive extension for an OS family,
// without a leading dot.
func ArchiveExtension(os OSFamily) string {
	if os == Windows {
		return "zip"
	}
	return "tar.gz"
}

// ExecutableSuffix returns the suffix appended to launcher script names.
func ExecutableSuffix(os OSFamily) string {
	if os == Windows {
		return ".bat"
	}
	return ""
}

// OSToken returns the OS component used in release file names.
func OSToken(os OSFamily) (string, error) {
	switch os {
	case Windows:
		return "windows", nil
	case Linux:
		return "linux", nil
	case MacOS:
		return "macos", nil
	default:
		return "", unsupported("os", os.String())
	}
}

// ArchToken returns the architecture component used in release file names.
// 32-bit ARM has no published artifact and is reported as unsupported.
func ArchToken(arch Arch) (string, error) {
	switch arch {
	case X86_32:
		return "ia32", nil
	case X86_64:
		return "x64", nil
	case ARM64:
		return "arm64", nil
	default:
		return "", unsupported("arch", arch.String())
	}
}
