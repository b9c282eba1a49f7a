// Package platform detects the host OS, architecture, and Linux distribution,
// maps them to the release target triple used by upstream toolchains, and
// exposes the result to Lua configuration as a read-only table.
//
// Linux distribution details come from gopsutil. When detection fails the
// package falls back to OS/arch only and assumes a glibc userland.
package platform

import "context"

// Linux distribution family constants.
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

// C library flavours on Linux.
const (
	LibcGNU  = "gnu"
	LibcMusl = "musl"
)

// Operating systems we provision for.
const (
	OSLinux   = "linux"
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // normalized GOARCH ("amd64", "arm64", "386", ...)
	ArchRaw  string // original value before normalization
	Platform string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical family (e.g., "debian")
	Version  string // distro version (Linux only)
	Libc     string // "gnu" or "musl" (Linux only)
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == OSDarwin
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == OSDarwin && i.Arch == "arm64"
}

// IsMusl returns true on Linux hosts with a musl userland.
func (i *Info) IsMusl() bool {
	return i.OS == OSLinux && i.Libc == LibcMusl
}

// ExeSuffix returns ".exe" on Windows and "" elsewhere.
func (i *Info) ExeSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// Exe appends the platform executable suffix to name.
func (i *Info) Exe(name string) string {
	return name + i.ExeSuffix()
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
