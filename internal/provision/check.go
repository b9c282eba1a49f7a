package provision

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/divehq/hostdeps/internal/logging"
	"github.com/divehq/hostdeps/internal/process"
)

// Status reports which steps a run would perform. A true field means the
// dependency is missing or stale.
type Status struct {
	UV       bool `json:"uv"`
	Python   bool `json:"python"`
	HostDeps bool `json:"host_deps"`
	NodeJS   bool `json:"nodejs"`
	ToolDeps bool `json:"tool_deps"`
}

// Check evaluates every need-check without changing anything on disk.
func (p *Provisioner) Check(ctx context.Context) Status {
	return Status{
		UV:       p.NeedUV(ctx),
		Python:   p.NeedPython(),
		HostDeps: p.NeedHostDeps(),
		NodeJS:   p.NeedNodeJS(),
		ToolDeps: p.NeedToolDeps(),
	}
}

// NeedUV reports whether uv must be (re)installed: either executable is
// missing or `uv -V` does not report UVVersion.
func (p *Provisioner) NeedUV(ctx context.Context) bool {
	if !exists(p.uvPath()) || !exists(p.uvxPath()) {
		return true
	}

	logger := logging.Component(ctx, "provision")
	out, err := process.Command(ctx, p.uvPath(), "-V").Output()
	if err != nil {
		logger.Warn().Err(err).Msg("uv -V failed, reinstalling")
		return true
	}

	installed, ok := parseUVVersion(string(out))
	if !ok {
		logger.Warn().Str("output", strings.TrimSpace(string(out))).Msg("unrecognised uv version output")
		return true
	}
	if !installed.Equal(semver.MustParse(UVVersion)) {
		logger.Info().Str("installed", installed.String()).Str("pinned", UVVersion).Msg("uv version changed")
		return true
	}
	return false
}

// parseUVVersion reads the second field of "uv 0.7.15 (hash date)".
func parseUVVersion(out string) (*semver.Version, bool) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, false
	}
	v, err := semver.NewVersion(fields[1])
	if err != nil {
		return nil, false
	}
	return v, true
}

// NeedPython reports whether no Python interpreter is installed.
func (p *Provisioner) NeedPython() bool {
	dir := p.dirs.Python()
	return !exists(filepath.Join(dir, "bin", "python")) && !exists(filepath.Join(dir, "python.exe"))
}

// NeedHostDeps reports whether the cached manifest digest differs from the
// current one. A missing cache or an unknown current digest always needs an
// install.
func (p *Provisioner) NeedHostDeps() bool {
	if p.digest == "" {
		return true
	}
	cached, err := os.ReadFile(p.dirs.ManifestDigest())
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(cached)) != p.digest
}

// NeedNodeJS reports whether the Windows Node.js runtime is missing. It is
// always false elsewhere.
func (p *Provisioner) NeedNodeJS() bool {
	if !p.info.IsWindows() {
		return false
	}
	return !exists(filepath.Join(p.dirs.NodeJS(), "node.exe"))
}

// NeedToolDeps reports whether the scripts directory has no node_modules.
func (p *Provisioner) NeedToolDeps() bool {
	return !exists(p.dirs.NodeModules())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
