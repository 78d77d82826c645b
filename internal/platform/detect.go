package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual host detection.
type RealDetector struct{}

// NewDetector creates a new host detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reports the raw OS and architecture names of the host.
//
// The OS comes from runtime.GOOS. The architecture prefers the kernel machine
// name reported by gopsutil, so a 32-bit build running on a 64-bit kernel still
// picks the native artifact. If gopsutil fails, runtime.GOARCH is used instead.
// On Linux the distribution fields are filled in when available.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		RawOS:   hostOSName(runtime.GOOS),
		RawArch: hostArchName(runtime.GOARCH),
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		// Cancellation is a hard failure; anything else falls back to the runtime values.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return info, nil
	}

	if hostInfo.KernelArch != "" {
		info.RawArch = hostArchName(hostInfo.KernelArch)
	}

	if runtime.GOOS == "linux" {
		platform := normalizePlatform(hostInfo.Platform)
		if platform != "" {
			info.Platform = platform
			info.Family = mapFamily(hostInfo.PlatformFamily)
			info.Version = normalizePlatform(hostInfo.PlatformVersion)
		}
	}

	return info, nil
}

// StaticDetector returns fixed raw names. It backs explicit --os/--arch
// overrides; empty fields are filled from the wrapped detector.
type StaticDetector struct {
	RawOS    string
	RawArch  string
	Fallback Detector
}

// Detect returns the configured raw names.
func (s *StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{}
	if (s.RawOS == "" || s.RawArch == "") && s.Fallback != nil {
		detected, err := s.Fallback.Detect(ctx)
		if err != nil {
			return nil, err
		}
		*info = *detected
	}
	if s.RawOS != "" {
		info.RawOS = s.RawOS
	}
	if s.RawArch != "" {
		info.RawArch = s.RawArch
	}
	return info, nil
}

// DetectDescriptor runs the detector and resolves its result.
func DetectDescriptor(ctx context.Context, d Detector) (Descriptor, *Info, error) {
	info, err := d.Detect(ctx)
	if err != nil {
		return Descriptor{}, nil, err
	}
	desc, err := info.Descriptor()
	if err != nil {
		return Descriptor{}, info, err
	}
	return desc, info, nil
}
