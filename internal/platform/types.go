// Package platform maps the host operating system and CPU architecture onto the
// small vocabulary used to pick a Dart Sass release artifact.
//
// Raw host names (as reported by the kernel or the Go runtime) are resolved into a
// Descriptor once per process. The Descriptor is then passed explicitly to every
// component that needs platform-dependent behaviour, so tests can inject any
// combination without touching the host.
package platform

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform is returned when a raw OS or architecture name does not
// map to a known value, or when a known value has no release artifact.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// OSFamily is the operating system family of a host.
type OSFamily int

const (
	// Windows covers every "win*" host.
	Windows OSFamily = iota + 1
	// Linux covers every "linux*" host.
	Linux
	// MacOS covers every host whose name contains "mac".
	MacOS
)

// String returns the family name.
func (f OSFamily) String() string {
	switch f {
	case Windows:
		return "Windows"
	case Linux:
		return "Linux"
	case MacOS:
		return "macOS"
	default:
		return "unknown"
	}
}

// Arch is the CPU architecture of a host.
type Arch int

const (
	// X86_32 is 32-bit x86 (i386 through i686).
	X86_32 Arch = iota + 1
	// X86_64 is 64-bit x86.
	X86_64
	// ARM32 is 32-bit ARM.
	ARM32
	// ARM64 is 64-bit ARM.
	ARM64
)

// String returns the architecture name.
func (a Arch) String() string {
	switch a {
	case X86_32:
		return "x86_32"
	case X86_64:
		return "x86_64"
	case ARM32:
		return "arm_32"
	case ARM64:
		return "arm_64"
	default:
		return "unknown"
	}
}

// Descriptor is the resolved (OS family, architecture) pair of a host.
type Descriptor struct {
	OS   OSFamily
	Arch Arch
}

// String returns "<os>/<arch>".
func (d Descriptor) String() string {
	return d.OS.String() + "/" + d.Arch.String()
}

// IsWindows returns true if the descriptor is a Windows host.
func (d Descriptor) IsWindows() bool {
	return d.OS == Windows
}

// Linux distribution family constants.
// These represent canonical family names for grouping related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains raw host detection results.
type Info struct {
	RawOS    string // e.g. "linux", "mac os x", "windows"
	RawArch  string // e.g. "x86_64", "aarch64", "x86"
	Platform string // distro ID (Linux only, e.g. "ubuntu")
	Family   string // canonical family (e.g. "debian")
	Version  string // distro version (Linux only, e.g. "22.04")
}

// Descriptor resolves the raw names into a Descriptor.
func (i *Info) Descriptor() (Descriptor, error) {
	return Resolve(i.RawOS, i.RawArch)
}

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
