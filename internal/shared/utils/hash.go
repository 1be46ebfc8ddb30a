package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b-256"
)

// Hasher computes hex digests of data and files.
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a BLAKE2b-256 hasher.
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b)
}

// Algorithm reports the algorithm name.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

func (h *Hasher) newHash() hash.Hash {
	switch h.algorithm {
	case BLAKE2b:
		// Only fails for keys longer than 64 bytes.
		hh, _ := blake2b.New256(nil)
		return hh
	default:
		return sha256.New()
	}
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	hh := h.newHash()
	hh.Write(data)
	return hex.EncodeToString(hh.Sum(nil))
}

// HashReader hashes everything read from r.
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	hh := h.newHash()
	if _, err := io.Copy(hh, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hh.Sum(nil)), nil
}

// HashFile hashes the file at path.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := h.HashReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}
