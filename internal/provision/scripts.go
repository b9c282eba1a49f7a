package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/divehq/hostdeps/internal/logging"
)

// seedScripts copies the bundled def-tool scripts into the scripts directory
// when it has no package.json yet. Failures are reported and provisioning
// continues.
func (p *Provisioner) seedScripts(ctx context.Context) {
	if p.opts.PrebuiltDir == "" {
		return
	}
	if exists(filepath.Join(p.dirs.Scripts(), "package.json")) {
		return
	}

	src := filepath.Join(p.opts.PrebuiltDir, "scripts")
	n, err := SeedScripts(src, p.dirs.Scripts())
	if err != nil {
		logging.Component(ctx, "provision").Error().Err(err).Str("src", src).Msg("seed scripts")
		_ = p.emit(ctx, ErrorEvent(fmt.Sprintf("failed to copy prebuilt to script: %v", err)))
		return
	}
	logging.Component(ctx, "provision").Info().Int("files", n).Str("src", src).Msg("seeded scripts")
}

// SeedScripts copies the regular files directly inside src into dst, creating
// dst if needed. Subdirectories are not copied. It returns the number of
// files copied.
func SeedScripts(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	copied := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
