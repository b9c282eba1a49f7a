package platform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDarwinPath is used on macOS when the process was launched without a
// PATH (e.g. from Finder or launchd).
const DefaultDarwinPath = "/opt/homebrew/bin:/usr/local/bin:/usr/bin"

// PathProvider supplies the PATH handed to provisioning subprocesses.
type PathProvider interface {
	SystemPath(ctx context.Context) string
}

// EnvPath builds PATH from the process environment.
//
// On Windows the locally installed Node.js and uv directories are appended so
// child processes can find npm and uv. On macOS an empty PATH falls back to
// DefaultDarwinPath.
type EnvPath struct {
	Info   *Info
	BinDir string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// SystemPath returns the PATH value for child processes.
func (e EnvPath) SystemPath(ctx context.Context) string {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	path := getenv("PATH")

	switch {
	case e.Info != nil && e.Info.IsWindows():
		parts := []string{}
		if path != "" {
			parts = append(parts, path)
		}
		if e.BinDir != "" {
			parts = append(parts,
				filepath.Join(e.BinDir, "nodejs"),
				filepath.Join(e.BinDir, "uv"),
			)
		}
		return strings.Join(parts, ";")
	case e.Info != nil && e.Info.IsMacOS():
		if path == "" {
			return DefaultDarwinPath
		}
	}
	return path
}
