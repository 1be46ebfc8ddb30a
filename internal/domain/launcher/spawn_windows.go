//go:build windows

package launcher

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
}

// spawnElevated asks the shell to run the file with the "runas" verb, which
// shows the UAC prompt. ShellExecute reports no pid.
func (s ExecSpawner) spawnElevated(req SpawnRequest) (int, error) {
	verb, err := windows.UTF16PtrFromString("runas")
	if err != nil {
		return 0, err
	}
	file, err := windows.UTF16PtrFromString(req.Path)
	if err != nil {
		return 0, err
	}
	var dir *uint16
	if req.Dir != "" {
		if dir, err = windows.UTF16PtrFromString(req.Dir); err != nil {
			return 0, err
		}
	}

	if err := windows.ShellExecute(0, verb, file, nil, dir, windows.SW_SHOWNORMAL); err != nil {
		return 0, fmt.Errorf("failed to start elevated process: %w", err)
	}
	return 0, nil
}
