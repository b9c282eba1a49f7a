package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/divehq/hostdeps/internal/binary"
	"github.com/divehq/hostdeps/internal/codesign"
	"github.com/divehq/hostdeps/internal/config"
	"github.com/divehq/hostdeps/internal/logging"
	"github.com/divehq/hostdeps/internal/platform"
	"github.com/divehq/hostdeps/internal/transaction"
)

// Journal step names.
const (
	StepUV       = "uv"
	StepPython   = "python"
	StepHostDeps = "host-deps"
	StepNodeJS   = "nodejs"
	StepToolDeps = "tool-deps"
)

// DirSigner ad-hoc signs the native executables below a directory.
type DirSigner interface {
	SignDirectory(ctx context.Context, dir string) (codesign.Result, error)
}

// Options configures a Provisioner.
type Options struct {
	Dirs     config.Dirs
	HostDir  string
	Platform *platform.Info

	// Path supplies PATH for child processes. Defaults to platform.EnvPath.
	Path       platform.PathProvider
	Downloader *binary.Downloader
	Extractor  *binary.Extractor
	// Signer is only used on macOS. Defaults to codesign.NewSigner.
	Signer DirSigner

	// ManifestDigest is the MD5 of the host uv.lock this build ships with.
	// When empty it is computed from HostDir/uv.lock.
	ManifestDigest string

	Debug       bool
	PrebuiltDir string
	Mirrors     config.Mirrors
	NodeJS      config.NodeJSConfig
	Version     string

	// UV and NodeJSArchive replace the pinned release descriptors.
	UV            *binary.Descriptor
	NodeJSArchive *binary.Descriptor
}

// Provisioner installs the host dependencies once per Start call.
type Provisioner struct {
	opts       Options
	dirs       config.Dirs
	info       *platform.Info
	path       platform.PathProvider
	downloader *binary.Downloader
	extractor  *binary.Extractor
	signer     DirSigner
	digest     string

	events  chan Event
	started atomic.Bool
	journal *transaction.Journal
}

// New validates opts and returns a Provisioner ready to Start.
func New(opts Options) (*Provisioner, error) {
	if opts.Dirs.Root == "" {
		return nil, errors.New("provision: root directory is required")
	}
	if opts.Platform == nil {
		return nil, errors.New("provision: platform info is required")
	}
	if opts.HostDir == "" && !opts.Debug {
		return nil, errors.New("provision: host directory is required")
	}

	p := &Provisioner{
		opts:       opts,
		dirs:       opts.Dirs,
		info:       opts.Platform,
		path:       opts.Path,
		downloader: opts.Downloader,
		extractor:  opts.Extractor,
		signer:     opts.Signer,
		digest:     opts.ManifestDigest,
		events:     make(chan Event, EventBufferSize),
	}
	if p.path == nil {
		p.path = platform.EnvPath{Info: opts.Platform, BinDir: opts.Dirs.Bin()}
	}
	if p.downloader == nil {
		p.downloader = binary.NewDownloader(opts.Version)
	}
	if p.extractor == nil {
		p.extractor = binary.NewExtractor()
	}
	if p.signer == nil && p.info.IsMacOS() {
		p.signer = codesign.NewSigner(nil, nil)
	}
	if p.digest == "" && opts.HostDir != "" {
		// A missing uv.lock leaves the digest empty; the host-deps step
		// reports ErrManifestMissing.
		p.digest, _ = binary.ComputeMD5(filepath.Join(opts.HostDir, "uv.lock"))
	}
	return p, nil
}

// Events returns the event stream. It is closed when Start returns.
func (p *Provisioner) Events() <-chan Event {
	return p.events
}

// ManifestDigest returns the digest the host-deps step compares against.
func (p *Provisioner) ManifestDigest() string {
	return p.digest
}

// Start runs provisioning to completion. The last event is Finished on
// success. On failure one Error event per failed branch is sent and Finished
// is not. Start may only be called once.
func (p *Provisioner) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(p.events)

	runID := ulid.Make().String()
	logger := logging.Component(ctx, "provision").With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	if p.opts.Debug {
		logger.Info().Msg("debug mode, skipping provisioning")
		return p.emit(ctx, FinishedEvent())
	}

	if err := p.dirs.Ensure(); err != nil {
		return p.fail(ctx, "failed to prepare directories", err)
	}

	lock, err := transaction.AcquireLock(ctx, p.dirs.LockFile())
	if err != nil {
		return p.fail(ctx, "failed to lock provisioning root", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn().Err(err).Msg("release lock")
		}
	}()

	if prev, err := transaction.LoadJournal(p.dirs.Journal()); err == nil && prev.Interrupted() {
		logger.Warn().Str("previous_run", prev.RunID).Msg("previous run was interrupted")
	}
	p.journal = transaction.NewJournal(runID, StepUV, StepPython, StepHostDeps, StepNodeJS, StepToolDeps)
	defer p.saveJournal(ctx)

	logger.Info().
		Str("os", p.info.OS).
		Str("arch", p.info.Arch).
		Str("root", p.dirs.Root).
		Msg("provisioning started")

	p.seedScripts(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.branch(ctx, gctx, "failed to download uv", p.runtimeBranch)
	})
	g.Go(func() error {
		return p.branch(ctx, gctx, "failed to download nodejs", p.nodeBranch)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if p.NeedToolDeps() {
		if err := p.step(ctx, StepToolDeps, p.installToolDeps); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Def-tool scripts are optional; the run still finishes.
			msg := fmt.Sprintf("failed to install def tool deps: %v", err)
			logger.Error().Err(err).Msg("tool deps install failed")
			if err := p.emit(ctx, ErrorEvent(msg)); err != nil {
				return err
			}
		}
	} else {
		p.journal.Update(StepToolDeps, transaction.StateSkipped, nil)
	}

	logger.Info().Msg("provisioning finished")
	return p.emit(ctx, FinishedEvent())
}

// branch runs fn with the group context and turns its failure into a single
// Error event sent on the parent context. A branch that only failed because
// its sibling cancelled the group reports nothing.
func (p *Provisioner) branch(parent, gctx context.Context, prefix string, fn func(context.Context) error) error {
	err := fn(gctx)
	if err == nil {
		return nil
	}
	if gctx.Err() != nil && parent.Err() == nil && errors.Is(err, context.Canceled) {
		return err
	}
	return p.fail(parent, prefix, err)
}

// fail logs err, emits it as an Error event and returns it wrapped.
func (p *Provisioner) fail(ctx context.Context, prefix string, err error) error {
	logging.Component(ctx, "provision").Error().Err(err).Msg(prefix)
	_ = p.emit(ctx, ErrorEvent(fmt.Sprintf("%s: %v", prefix, err)))
	return fmt.Errorf("%s: %w", prefix, err)
}

// emit sends ev, giving up when ctx is done.
func (p *Provisioner) emit(ctx context.Context, ev Event) error {
	select {
	case p.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provisioner) output(ctx context.Context, format string, args ...any) error {
	return p.emit(ctx, OutputEvent(fmt.Sprintf(format, args...)))
}

func (p *Provisioner) progress(ctx context.Context, prog binary.Progress) error {
	return p.emit(ctx, ProgressEvent(prog))
}

func (p *Provisioner) runtimeBranch(ctx context.Context) error {
	if err := p.maybe(ctx, StepUV, p.NeedUV(ctx), p.installUV); err != nil {
		return err
	}
	if err := p.maybe(ctx, StepPython, p.NeedPython(), p.installPython); err != nil {
		return err
	}
	return p.maybe(ctx, StepHostDeps, p.NeedHostDeps(), p.installHostDeps)
}

func (p *Provisioner) nodeBranch(ctx context.Context) error {
	return p.maybe(ctx, StepNodeJS, p.NeedNodeJS(), p.installNodeJS)
}

// maybe runs the step when need is set and records it as skipped otherwise.
func (p *Provisioner) maybe(ctx context.Context, name string, need bool, run func(context.Context) error) error {
	if !need {
		logging.Component(ctx, "provision").Debug().Str("step", name).Msg("up to date")
		p.journal.Update(name, transaction.StateSkipped, nil)
		return nil
	}
	return p.step(ctx, name, run)
}

func (p *Provisioner) step(ctx context.Context, name string, run func(context.Context) error) error {
	p.journal.Update(name, transaction.StateInProgress, nil)
	if err := run(ctx); err != nil {
		p.journal.Update(name, transaction.StateFailed, err)
		return err
	}
	p.journal.Update(name, transaction.StateCompleted, nil)
	return nil
}

func (p *Provisioner) saveJournal(ctx context.Context) {
	if err := p.journal.Save(p.dirs.Journal()); err != nil {
		logging.Component(ctx, "provision").Warn().Err(err).Msg("save journal")
	}
}

// sign ad-hoc signs dir on macOS and is a no-op elsewhere.
func (p *Provisioner) sign(ctx context.Context, dir string) error {
	if !p.info.IsMacOS() || p.signer == nil {
		return nil
	}
	res, err := p.signer.SignDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("sign %s: %w", dir, err)
	}
	logging.Component(ctx, "provision").Info().
		Str("dir", dir).
		Int("signed", res.Signed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("signing done")
	return nil
}
