package registry

import "errors"

var (
	// ErrNotFound indicates no record matches the requested name or path
	ErrNotFound = errors.New("app not found")

	// ErrAlreadyExists indicates a record with the derived name is already registered
	ErrAlreadyExists = errors.New("app already exists")

	// ErrCopyFailed indicates the executable could not be copied into the apps directory
	ErrCopyFailed = errors.New("copy failed")

	// ErrNameCollision indicates a strict rename would duplicate another record's name
	ErrNameCollision = errors.New("name already in use")

	// ErrInvalidName indicates an empty or otherwise unusable name
	ErrInvalidName = errors.New("invalid app name")
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists returns true if the error is ErrAlreadyExists
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsCopyFailed returns true if the error is ErrCopyFailed
func IsCopyFailed(err error) bool {
	return errors.Is(err, ErrCopyFailed)
}
