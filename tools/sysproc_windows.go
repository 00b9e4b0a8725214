//go:build windows

package tools

import (
	"os/exec"
	"syscall"
)

// CREATE_NO_WINDOW
const createNoWindow = 0x08000000

// HideWindow keeps cmd from opening a console window.
func HideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
