//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func (s ExecSpawner) spawnElevated(req SpawnRequest) (int, error) {
	if unix.Geteuid() == 0 {
		return start(exec.Command(req.Path), req.Dir)
	}
	if s.ElevateCommand == "" {
		return 0, ErrElevationUnsupported
	}
	helper, err := exec.LookPath(s.ElevateCommand)
	if err != nil {
		return 0, ErrElevationUnsupported
	}
	return start(exec.Command(helper, req.Path), req.Dir)
}
