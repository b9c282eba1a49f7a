package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// muslLoaderGlob matches the dynamic loader shipped by musl-based distros.
const muslLoaderGlob = "/lib/ld-musl-*.so.1"

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect uses runtime.GOOS and runtime.GOARCH for OS and architecture and
// gopsutil for Linux distribution details. Distro detection failures are not
// fatal; the libc then defaults to glibc unless a musl loader is present.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS != OSLinux {
		return info, nil
	}

	info.Libc = LibcGNU
	if matches, _ := filepath.Glob(muslLoaderGlob); len(matches) > 0 {
		info.Libc = LibcMusl
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	platform = normalizePlatform(platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
	}
	if info.Family == FamilyAlpine {
		info.Libc = LibcMusl
	}

	return info, nil
}

// StaticDetector always returns a copy of Info. It lets callers pin the
// platform, e.g. to stage an install for another machine.
type StaticDetector struct {
	Info Info
	Err  error
}

// Detect returns the configured info and error.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	info := s.Info
	return &info, nil
}
