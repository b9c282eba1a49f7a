package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned when no release target triple exists for
// the host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// darwinTriples, windowsTriples, and linuxTriples map GOARCH to the target
// triples upstream toolchains publish release archives for.
var darwinTriples = map[string]string{
	"amd64": "x86_64-apple-darwin",
	"arm64": "aarch64-apple-darwin",
}

var windowsTriples = map[string]string{
	"amd64": "x86_64-pc-windows-msvc",
	"arm64": "aarch64-pc-windows-msvc",
	"386":   "i686-pc-windows-msvc",
}

var linuxTriples = map[string]map[string]string{
	LibcGNU: {
		"amd64":   "x86_64-unknown-linux-gnu",
		"arm64":   "aarch64-unknown-linux-gnu",
		"386":     "i686-unknown-linux-gnu",
		"arm":     "armv7-unknown-linux-gnueabihf",
		"ppc64":   "powerpc64-unknown-linux-gnu",
		"ppc64le": "powerpc64le-unknown-linux-gnu",
		"riscv64": "riscv64gc-unknown-linux-gnu",
		"s390x":   "s390x-unknown-linux-gnu",
	},
	LibcMusl: {
		"amd64": "x86_64-unknown-linux-musl",
		"arm64": "aarch64-unknown-linux-musl",
		"386":   "i686-unknown-linux-musl",
		"arm":   "armv7-unknown-linux-musleabihf",
	},
}

// TargetTriple returns the release target triple for info, e.g.
// "aarch64-apple-darwin" or "x86_64-unknown-linux-musl".
func TargetTriple(info *Info) (string, error) {
	var triple string
	switch info.OS {
	case OSDarwin:
		triple = darwinTriples[info.Arch]
	case OSWindows:
		triple = windowsTriples[info.Arch]
	case OSLinux:
		libc := info.Libc
		if libc == "" {
			libc = LibcGNU
		}
		triple = linuxTriples[libc][info.Arch]
	}
	if triple == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, info.OS, info.Arch)
	}
	return triple, nil
}
