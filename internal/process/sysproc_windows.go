//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// createNoWindow keeps console children from flashing a window when the
// provisioner runs inside a GUI app.
const createNoWindow = 0x08000000

func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

// killGroup is a no-op; descendants are found through gopsutil instead.
func killGroup(pid int) {}
