//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// createNoWindow mirrors original_source's CREATE_NO_WINDOW constant.
const createNoWindow = 0x08000000

func applyPlatformAttrs(cmd *exec.Cmd, hideConsole bool) {
	if !hideConsole {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
