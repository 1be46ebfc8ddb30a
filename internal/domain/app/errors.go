package app

import (
	"errors"

	"github.com/GriffinCanCode/PortableShelf/internal/domain/launcher"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/registry"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/resilience"
)

// Error kinds shown to users and carried over the daemon API.
const (
	KindNotFound      = "not_found"
	KindAlreadyExists = "already_exists"
	KindCopyFailed    = "copy_failed"
	KindNameCollision = "name_collision"
	KindInvalidName   = "invalid_name"
	KindLaunchFailed  = "launch_failed"
	KindUnavailable   = "unavailable"
	KindInternal      = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, registry.ErrNotFound):
		return KindNotFound
	case errors.Is(err, registry.ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, registry.ErrCopyFailed):
		return KindCopyFailed
	case errors.Is(err, registry.ErrNameCollision):
		return KindNameCollision
	case errors.Is(err, registry.ErrInvalidName):
		return KindInvalidName
	case launcher.IsLaunchError(err):
		return KindLaunchFailed
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// ErrorFromKind rebuilds a typed error from a kind and message, so errors
// that crossed the daemon API still match errors.Is and errors.As. The
// message is kept verbatim.
func ErrorFromKind(kind, msg, name string) error {
	var cause error
	switch kind {
	case KindNotFound:
		cause = registry.ErrNotFound
	case KindAlreadyExists:
		cause = registry.ErrAlreadyExists
	case KindCopyFailed:
		cause = registry.ErrCopyFailed
	case KindNameCollision:
		cause = registry.ErrNameCollision
	case KindInvalidName:
		cause = registry.ErrInvalidName
	case KindLaunchFailed:
		cause = &launcher.LaunchError{Name: name, Cause: errors.New(msg)}
	case KindUnavailable:
		cause = resilience.ErrCircuitOpen
	default:
		return errors.New(msg)
	}
	return &remoteError{msg: msg, cause: cause}
}

type remoteError struct {
	msg   string
	cause error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.cause }
