package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dirs is the on-disk layout rooted at Root. Construct it once and pass it
// by value.
type Dirs struct {
	Root string
}

// NewDirs returns the layout for root.
func NewDirs(root string) Dirs {
	return Dirs{Root: filepath.Clean(root)}
}

// DefaultRoot returns $HOSTDEPS_ROOT, or ~/.dive when unset.
func DefaultRoot() (string, error) {
	if root := os.Getenv(rootEnvVar); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultRootDirName), nil
}

func (d Dirs) Bin() string     { return filepath.Join(d.Root, "bin") }
func (d Dirs) Cache() string   { return filepath.Join(d.Root, "host_cache") }
func (d Dirs) Scripts() string { return filepath.Join(d.Root, "scripts") }
func (d Dirs) Log() string     { return filepath.Join(d.Root, "log") }
func (d Dirs) Config() string  { return filepath.Join(d.Root, "config") }

func (d Dirs) UV() string            { return filepath.Join(d.Bin(), "uv") }
func (d Dirs) Python() string        { return filepath.Join(d.Bin(), "python") }
func (d Dirs) PythonStaging() string { return filepath.Join(d.Bin(), "py_tmp") }
func (d Dirs) NodeJS() string        { return filepath.Join(d.Bin(), "nodejs") }
func (d Dirs) NodeJSStaging() string { return filepath.Join(d.Bin(), "nodejs_tmp") }

// Deps is the pip --target directory for the host's Python packages.
func (d Dirs) Deps() string { return filepath.Join(d.Cache(), "deps") }

// Requirements is where `uv export` writes the pinned requirements.
func (d Dirs) Requirements() string { return filepath.Join(d.Cache(), "requirements.txt") }

// ManifestDigest stores the MD5 of the uv.lock the deps were installed from.
func (d Dirs) ManifestDigest() string { return filepath.Join(d.Cache(), "uv.lock.md5") }

// Journal records the step states of the last provisioning run.
func (d Dirs) Journal() string { return filepath.Join(d.Cache(), "provision.json") }

func (d Dirs) NodeModules() string { return filepath.Join(d.Scripts(), "node_modules") }
func (d Dirs) ConfigFile() string  { return filepath.Join(d.Config(), "provision.lua") }
func (d Dirs) LogFile() string     { return filepath.Join(d.Log(), "provision.log") }
func (d Dirs) LockFile() string    { return filepath.Join(d.Root, "provision.lock") }

// Ensure creates the top-level directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Bin(), d.Cache(), d.Scripts(), d.Log(), d.Config()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
