// Package codesign applies ad-hoc signatures to every native executable in a
// directory tree. macOS refuses to run unsigned Mach-O binaries that were
// downloaded outside the App Store.
package codesign

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/divehq/hostdeps/internal/logging"
	"golang.org/x/sync/semaphore"
)

// MaxConcurrentSigning bounds simultaneous check+sign invocations.
const MaxConcurrentSigning = 5

// Result summarises one SignDirectory run. Candidates = Signed + Skipped + Failed.
type Result struct {
	Candidates int      `json:"candidates"`
	Signed     int      `json:"signed"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Failures   []string `json:"failures,omitempty"`
}

// Signer signs the native executables found under a directory.
type Signer struct {
	tool      Tool
	inspector Inspector
	limit     int64
}

// NewSigner returns a signer. Nil arguments select CodesignTool and
// MachOInspector.
func NewSigner(tool Tool, inspector Inspector) *Signer {
	if tool == nil {
		tool = CodesignTool{}
	}
	if inspector == nil {
		inspector = MachOInspector{}
	}
	return &Signer{tool: tool, inspector: inspector, limit: MaxConcurrentSigning}
}

// SignDirectory walks dir and ad-hoc signs every executable native binary
// that is not already signed. Individual failures are logged and counted;
// the returned error is non-nil only when dir itself is unusable.
func (s *Signer) SignDirectory(ctx context.Context, dir string) (Result, error) {
	logger := logging.Component(ctx, "codesign")

	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", dir)
	}

	candidates := s.discover(ctx, dir)

	var (
		res Result
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(s.limit)
	)
	res.Candidates = len(candidates)

	for _, path := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()

			signed, err := s.signOne(ctx, sem, path)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				res.Failures = append(res.Failures, path)
				logger.Error().Err(err).Str("path", path).Msg("sign failed")
			case signed:
				res.Signed++
				logger.Debug().Str("path", path).Msg("signed")
			default:
				res.Skipped++
			}
		}()
	}
	wg.Wait()

	logger.Info().
		Str("dir", dir).
		Int("candidates", res.Candidates).
		Int("signed", res.Signed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("signing complete")

	return res, nil
}

// signOne holds one permit for the check and the sign. It reports whether
// a signature was applied.
func (s *Signer) signOne(ctx context.Context, sem *semaphore.Weighted, path string) (bool, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer sem.Release(1)

	if _, err := os.Lstat(path); err != nil {
		return false, err
	}

	already, err := s.tool.IsSigned(ctx, path)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := s.tool.Sign(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// discover returns regular files under dir with an executable bit that the
// inspector recognises as native. Unreadable entries are skipped.
func (s *Signer) discover(ctx context.Context, dir string) []string {
	logger := logging.Component(ctx, "codesign")

	var found []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Mode().Perm()&0o111 == 0 {
			return nil
		}

		native, err := s.inspector.IsNative(path)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("inspect failed")
			return nil
		}
		if native {
			found = append(found, path)
		}
		return nil
	})
	return found
}
