package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/divehq/hostdeps/internal/binary"
	"github.com/divehq/hostdeps/internal/logging"
	"github.com/divehq/hostdeps/internal/process"
)

const (
	checksumsFile = "SHASUMS256.txt"
	signatureFile = "SHASUMS256.txt.sig"
)

func (p *Provisioner) uvPath() string  { return filepath.Join(p.dirs.UV(), p.info.Exe("uv")) }
func (p *Provisioner) uvxPath() string { return filepath.Join(p.dirs.UV(), p.info.Exe("uvx")) }

func (p *Provisioner) pythonPath() string {
	if p.info.IsWindows() {
		return filepath.Join(p.dirs.Python(), "python.exe")
	}
	return filepath.Join(p.dirs.Python(), "bin", "python3")
}

func (p *Provisioner) uvDescriptor() (binary.Descriptor, error) {
	if p.opts.UV != nil {
		return *p.opts.UV, nil
	}
	return UVDescriptor(p.info, p.dirs, p.opts.Mirrors.UV)
}

func (p *Provisioner) nodeJSDescriptor() binary.Descriptor {
	if p.opts.NodeJSArchive != nil {
		return *p.opts.NodeJSArchive
	}
	return NodeJSDescriptor(p.dirs, p.opts.Mirrors.NodeJS)
}

func (p *Provisioner) installUV(ctx context.Context) error {
	desc, err := p.uvDescriptor()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(desc.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", desc.Dir, err)
	}

	name := archiveName(desc)
	archive := filepath.Join(desc.Dir, name)
	if err := p.output(ctx, "download uv from %s", desc.URL); err != nil {
		return err
	}
	if err := p.downloader.Download(ctx, desc.URL, archive, p.progress); err != nil {
		return err
	}

	if desc.Verified() {
		if err := binary.CheckSHA256(archive, desc.SHA256); err != nil {
			_ = os.Remove(archive)
			return fmt.Errorf("%w for %s: %w", ErrIntegrityMismatch, name, err)
		}
	} else {
		logging.Component(ctx, "provision").Warn().Str("url", desc.URL).Msg("uv archive has no pinned digest")
	}

	if err := p.extractor.Extract(ctx, desc.Format, archive, desc.Dir); err != nil {
		return err
	}
	if err := p.output(ctx, "remove uv archive file"); err != nil {
		return err
	}
	if err := os.Remove(archive); err != nil {
		return fmt.Errorf("remove %s: %w", archive, err)
	}

	// Tarballs nest the executables under uv-<triple>/; zips are flat.
	if desc.Format == binary.FormatTarGz {
		if err := p.output(ctx, "move uv to %s", desc.Dir); err != nil {
			return err
		}
		nested := filepath.Join(desc.Dir, archiveRoot(desc))
		for _, exe := range []string{"uv", "uvx"} {
			if err := os.Rename(filepath.Join(nested, exe), filepath.Join(desc.Dir, exe)); err != nil {
				return fmt.Errorf("move %s: %w", exe, err)
			}
		}
		if err := os.RemoveAll(nested); err != nil {
			return fmt.Errorf("remove %s: %w", nested, err)
		}
	}

	if err := p.output(ctx, "download uv done"); err != nil {
		return err
	}
	if p.info.IsMacOS() {
		if err := p.output(ctx, "signing uv, please wait..."); err != nil {
			return err
		}
		return p.sign(ctx, desc.Dir)
	}
	return nil
}

func (p *Provisioner) installPython(ctx context.Context) error {
	staging := p.dirs.PythonStaging()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", staging, err)
	}

	cmd := p.command(ctx, p.uvPath(), "python", "install", PythonVersion, "-i", staging)
	if err := p.pump(ctx, cmd, "uv"); err != nil {
		return fmt.Errorf("failed to download python: %w", err)
	}

	installed, err := findPythonInstall(staging)
	if err != nil {
		return err
	}
	target := p.dirs.Python()
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove %s: %w", target, err)
	}
	if err := os.Rename(installed, target); err != nil {
		return fmt.Errorf("move python to %s: %w", target, err)
	}
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("remove %s: %w", staging, err)
	}

	if err := p.output(ctx, "download python done"); err != nil {
		return err
	}
	if p.info.IsMacOS() {
		if err := p.output(ctx, "signing python, please wait..."); err != nil {
			return err
		}
		return p.sign(ctx, target)
	}
	return nil
}

// findPythonInstall returns the first cpython-3* directory in staging.
func findPythonInstall(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", staging, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "cpython-3") {
			return filepath.Join(staging, e.Name()), nil
		}
	}
	return "", ErrInstallDirMissing
}

func (p *Provisioner) installHostDeps(ctx context.Context) error {
	if !exists(filepath.Join(p.opts.HostDir, "uv.lock")) {
		return ErrManifestMissing
	}
	if err := os.MkdirAll(p.dirs.Cache(), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", p.dirs.Cache(), err)
	}

	export := p.command(ctx, p.uvPath(), "export", "-o", p.dirs.Requirements())
	export.Dir = p.opts.HostDir
	if err := p.pump(ctx, export, "uv"); err != nil {
		return fmt.Errorf("failed to generate requirements.txt: %w", err)
	}

	install := p.command(ctx, p.uvPath(), "pip", "install",
		"-r", p.dirs.Requirements(),
		"--target", p.dirs.Deps(),
		"--python", p.pythonPath(),
	)
	install.Dir = p.opts.HostDir
	// A stray interpreter environment must not leak into the install.
	install.Env = setEnv(install.Env, "PYTHONPATH", "")
	install.Env = setEnv(install.Env, "PYTHONHOME", "")
	if err := p.pump(ctx, install, "uv"); err != nil {
		return fmt.Errorf("failed to install host dependencies: %w", err)
	}

	if err := os.WriteFile(p.dirs.ManifestDigest(), []byte(p.digest), 0o644); err != nil {
		return fmt.Errorf("write manifest digest: %w", err)
	}

	if err := p.output(ctx, "download host dependencies done"); err != nil {
		return err
	}
	if p.info.IsMacOS() {
		if err := p.output(ctx, "signing host dependencies, please wait..."); err != nil {
			return err
		}
		return p.sign(ctx, p.dirs.Deps())
	}
	return nil
}

func (p *Provisioner) installNodeJS(ctx context.Context) error {
	desc := p.nodeJSDescriptor()
	staging := p.dirs.NodeJSStaging()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", staging, err)
	}

	archive := filepath.Join(staging, archiveName(desc))
	if err := p.output(ctx, "download nodejs from %s", desc.URL); err != nil {
		return err
	}
	if err := p.downloader.Download(ctx, desc.URL, archive, p.progress); err != nil {
		return err
	}
	if p.opts.NodeJS.VerifyChecksums {
		if err := p.verifyNodeJS(ctx, desc, archive); err != nil {
			return err
		}
	}

	if err := p.extractor.Extract(ctx, desc.Format, archive, staging); err != nil {
		return err
	}
	if err := os.RemoveAll(desc.Dir); err != nil {
		return fmt.Errorf("remove %s: %w", desc.Dir, err)
	}
	if err := os.Rename(filepath.Join(staging, archiveRoot(desc)), desc.Dir); err != nil {
		return fmt.Errorf("move nodejs to %s: %w", desc.Dir, err)
	}
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("remove %s: %w", staging, err)
	}

	return p.output(ctx, "download nodejs done")
}

// verifyNodeJS checks archive against the release SHASUMS256.txt, first
// verifying the manifest's detached signature when a keyring is configured.
func (p *Provisioner) verifyNodeJS(ctx context.Context, desc binary.Descriptor, archive string) error {
	base := desc.URL[:strings.LastIndex(desc.URL, "/")+1]
	staging := filepath.Dir(archive)
	sums := filepath.Join(staging, checksumsFile)

	if err := p.downloader.Download(ctx, base+checksumsFile, sums, nil); err != nil {
		return fmt.Errorf("download %s: %w", checksumsFile, err)
	}
	if keyring := p.opts.NodeJS.Keyring; keyring != "" {
		sig := filepath.Join(staging, signatureFile)
		if err := p.downloader.Download(ctx, base+signatureFile, sig, nil); err != nil {
			return fmt.Errorf("download %s: %w", signatureFile, err)
		}
		if err := binary.VerifyDetachedSignature(keyring, sums, sig); err != nil {
			return fmt.Errorf("%w for %s: %w", ErrIntegrityMismatch, checksumsFile, err)
		}
	}

	f, err := os.Open(sums)
	if err != nil {
		return err
	}
	entries, err := binary.ParseChecksums(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", checksumsFile, err)
	}

	name := archiveName(desc)
	expected, err := binary.FindChecksum(entries, name)
	if err != nil {
		return fmt.Errorf("%w for %s: %w", ErrIntegrityMismatch, name, err)
	}
	if err := binary.CheckSHA256(archive, expected); err != nil {
		return fmt.Errorf("%w for %s: %w", ErrIntegrityMismatch, name, err)
	}
	logging.Component(ctx, "provision").Info().Str("file", name).Msg("nodejs checksum verified")
	return nil
}

func (p *Provisioner) installToolDeps(ctx context.Context) error {
	var npm string
	if p.info.IsWindows() {
		npm = filepath.Join(p.dirs.NodeJS(), "npm.cmd")
	} else {
		npm = lookPath("npm", p.path.SystemPath(ctx))
	}

	cmd := p.command(ctx, npm, "install")
	cmd.Dir = p.dirs.Scripts()
	return p.pump(ctx, cmd, "npm")
}

// command builds a child process whose PATH comes from the PathProvider.
func (p *Provisioner) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := process.Command(ctx, name, args...)
	cmd.Env = setEnv(os.Environ(), "PATH", p.path.SystemPath(ctx))
	return cmd
}

// pump runs cmd and forwards its output as events. Lines with the error
// prefix become Error events.
func (p *Provisioner) pump(ctx context.Context, cmd *exec.Cmd, tag string) error {
	return process.Pump(ctx, cmd, tag, func(ctx context.Context, kind process.LineKind, line string) error {
		if kind == process.LineError {
			return p.emit(ctx, ErrorEvent(line))
		}
		return p.emit(ctx, OutputEvent(line))
	})
}

// setEnv returns env with key set to value, replacing any existing entry.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

// lookPath searches pathList for an executable named name. It returns name
// unchanged when nothing matches so exec reports the failure.
func lookPath(name, pathList string) string {
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate
		}
	}
	return name
}
