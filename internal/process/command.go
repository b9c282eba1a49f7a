package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// waitDelay bounds how long Wait blocks on pipes held open by orphaned
// grandchildren after the child exits.
const waitDelay = 2 * time.Second

// Command returns an exec.Cmd bound to ctx. When ctx is done the child and
// its descendants are killed.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	//nolint:gosec // callers pass binaries installed by the provisioner
	cmd := exec.CommandContext(ctx, name, args...)
	configureSysProcAttr(cmd)
	cmd.Cancel = func() error {
		return killTree(cmd.Process)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

// killTree kills p and every descendant gopsutil can find, then the process
// group where one exists.
func killTree(p *os.Process) error {
	if p == nil {
		return nil
	}

	if proc, err := gopsprocess.NewProcess(int32(p.Pid)); err == nil {
		killDescendants(proc)
	}
	killGroup(p.Pid)

	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func killDescendants(proc *gopsprocess.Process) {
	children, err := proc.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		killDescendants(child)
		_ = child.Kill()
	}
}
