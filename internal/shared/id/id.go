// Package id generates the ULIDs used to correlate launches and API
// requests in logs.
//
// IDs carry a short type prefix (launch_*, req_*) so a log line says what it
// refers to, and sort by creation time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// LaunchID identifies one launch request.
type LaunchID string

// RequestID identifies one daemon API request.
type RequestID string

const (
	LaunchPrefix  = "launch"
	RequestPrefix = "req"
)

// Generator produces monotonic ULIDs from a shared entropy source.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic IDs.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix creates a "<prefix>_<ulid>" string.
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewLaunchID generates a launch request ID.
func NewLaunchID() LaunchID {
	return LaunchID(Default().WithPrefix(LaunchPrefix))
}

// NewRequestID generates an API request ID.
func NewRequestID() RequestID {
	return RequestID(Default().WithPrefix(RequestPrefix))
}

func (id LaunchID) String() string  { return string(id) }
func (id RequestID) String() string { return string(id) }

// Timestamp extracts the creation time from a prefixed or bare ULID.
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
