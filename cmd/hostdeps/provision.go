package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/provision"
)

func newProvisionCmd(a *app) *cobra.Command {
	var (
		hostDir     string
		prebuiltDir string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install or update uv, Python, the host packages and Node.js",
		Long: `Provision brings the root directory up to date. Steps whose dependency is
already installed at the pinned version are skipped, so running it again is cheap.`,
		Example: `  hostdeps provision --host-dir ~/src/mcp-host
  hostdeps provision --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.provisioner(hostDir, prebuiltDir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- p.Start(ctx) }()

			out := cmd.OutOrStdout()
			render := newEventRenderer(out)
			enc := json.NewEncoder(out)
			var writeErr error
			for ev := range p.Events() {
				if writeErr != nil {
					continue
				}
				if jsonOut {
					writeErr = enc.Encode(ev)
				} else {
					writeErr = render.render(ev)
				}
			}
			if err := <-errCh; err != nil {
				return err
			}
			return writeErr
		},
	}

	cmd.Flags().StringVar(&hostDir, "host-dir", "", "MCP host project containing uv.lock (default from config)")
	cmd.Flags().StringVar(&prebuiltDir, "prebuilt-dir", "", "bundled def-tool scripts to seed <root>/scripts from")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print events as JSON lines")
	return cmd
}

// provisioner builds a Provisioner from the resolved config. Flags win over
// config values.
func (a *app) provisioner(hostDir, prebuiltDir string) (*provision.Provisioner, error) {
	if hostDir == "" {
		hostDir = a.cfg.HostDir
	}
	if prebuiltDir == "" {
		prebuiltDir = a.cfg.PrebuiltDir
	}
	return provision.New(provision.Options{
		Dirs:           a.dirs,
		HostDir:        hostDir,
		Platform:       a.info,
		ManifestDigest: a.opts.digest,
		Debug:          a.cfg.Debug,
		PrebuiltDir:    prebuiltDir,
		Mirrors:        a.cfg.Mirrors,
		NodeJS:         a.cfg.NodeJS,
		Version:        a.opts.version,
	})
}

// eventRenderer prints events for humans. Progress is printed once per
// ten percent.
type eventRenderer struct {
	w       io.Writer
	lastPct int
}

func newEventRenderer(w io.Writer) *eventRenderer {
	return &eventRenderer{w: w, lastPct: -1}
}

func (r *eventRenderer) render(ev provision.Event) error {
	var err error
	switch ev.Type {
	case provision.EventOutput:
		r.lastPct = -1
		_, err = fmt.Fprintln(r.w, "  "+ev.Text)
	case provision.EventProgress:
		pct := int(ev.Progress.Percentage) / 10 * 10
		if pct == r.lastPct {
			return nil
		}
		r.lastPct = pct
		_, err = fmt.Fprintln(r.w, mutedStyle.Render(fmt.Sprintf("    %3d%%  %s  %s/s",
			pct, formatBytes(ev.Progress.Downloaded), formatBytes(uint64(ev.Progress.SpeedBps)))))
	case provision.EventError:
		_, err = fmt.Fprintln(r.w, errorStyle.Render("✗ "+ev.Text))
	case provision.EventFinished:
		_, err = fmt.Fprintln(r.w, successStyle.Render("✓ provisioning finished"))
	}
	return err
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
