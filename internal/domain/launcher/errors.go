package launcher

import (
	"errors"
	"fmt"
)

var (
	// ErrCompressedApp indicates a packed portable app that must be extracted before it can run
	ErrCompressedApp = errors.New("app is compressed, extract it first")

	// ErrElevationUnsupported indicates no way to request elevated rights on this host
	ErrElevationUnsupported = errors.New("elevated launch not supported")

	// ErrNotExecutable indicates the record points at something that can't be started
	ErrNotExecutable = errors.New("not an executable file")
)

// LaunchError reports a failed spawn. The registry is never modified when
// a launch fails.
type LaunchError struct {
	Name     string
	Path     string
	Elevated bool
	Cause    error
}

func (e *LaunchError) Error() string {
	mode := ""
	if e.Elevated {
		mode = " (elevated)"
	}
	return fmt.Sprintf("launch of %s%s failed: %v", e.Name, mode, e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// IsLaunchError returns true if err is or wraps a *LaunchError
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}
