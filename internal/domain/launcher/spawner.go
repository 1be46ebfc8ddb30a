package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// SpawnRequest describes one process start.
type SpawnRequest struct {
	Path     string
	Dir      string
	Elevated bool
}

// Spawner starts a process without waiting for it.
type Spawner interface {
	// Spawn returns the child's pid, or 0 when the OS doesn't report one.
	Spawn(ctx context.Context, req SpawnRequest) (int, error)
}

// ExecSpawner starts detached child processes with os/exec. The child gets
// its own session or process group, inherits no stdio, and is released
// immediately so it outlives the shelf.
type ExecSpawner struct {
	// ElevateCommand wraps elevated launches on hosts without a native
	// elevation verb, e.g. "pkexec" or "sudo".
	ElevateCommand string
}

// Spawn implements Spawner.
func (s ExecSpawner) Spawn(ctx context.Context, req SpawnRequest) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	req, err := req.absolute()
	if err != nil {
		return 0, err
	}
	if req.Elevated {
		return s.spawnElevated(req)
	}
	return start(exec.Command(req.Path), req.Dir)
}

// absolute anchors Path and Dir at the caller's working directory. exec
// resolves a relative Path against cmd.Dir, which would double the prefix.
func (r SpawnRequest) absolute() (SpawnRequest, error) {
	p, err := filepath.Abs(r.Path)
	if err != nil {
		return r, fmt.Errorf("failed to resolve %s: %w", r.Path, err)
	}
	r.Path = p
	if r.Dir != "" {
		if r.Dir, err = filepath.Abs(r.Dir); err != nil {
			return r, fmt.Errorf("failed to resolve %s: %w", r.Dir, err)
		}
	}
	return r, nil
}

// start launches cmd detached. exec.Command is used rather than
// CommandContext so cancelling the caller never kills the child.
func start(cmd *exec.Cmd, dir string) (int, error) {
	cmd.Dir = dir
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release process: %w", err)
	}
	return pid, nil
}
