package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyInto copies the regular file at src into dir, keeping its base name
// and permission bits. An existing destination is an error, and a partial
// copy is removed.
func copyInto(src, dir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", src)
	}
	if dir == "" {
		return "", errors.New("apps directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, filepath.Base(src))
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("destination %s already exists", dest)
		}
		return "", err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}
