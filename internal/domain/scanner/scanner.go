package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/paths"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// DefaultPatterns matches Windows executables anywhere below the root.
var DefaultPatterns = []string{"**/*.exe"}

// executableMIME lists the formats accepted by binary detection.
var executableMIME = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-elf",
	"application/x-executable",
	"application/x-mach-binary",
}

// Options configures a Scanner.
type Options struct {
	// Patterns are doublestar globs matched against the slash-separated
	// path relative to the root, case-insensitively.
	Patterns []string
	// DetectBinaries also accepts files whose content sniffs as an executable.
	DetectBinaries bool
}

// Scanner finds executables under a managed directory.
type Scanner struct {
	patterns []string
	detect   bool
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// New validates the patterns and creates a Scanner.
func New(opts Options, logger *logging.Logger, metrics *monitoring.Metrics) (*Scanner, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(filepath.ToSlash(strings.TrimSpace(p)))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid scan pattern %q", p)
		}
		normalized = append(normalized, p)
	}
	if len(normalized) == 0 {
		return nil, errors.New("no scan patterns")
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		patterns: normalized,
		detect:   opts.DetectBinaries,
		logger:   logger.Named("scanner"),
		metrics:  metrics,
	}, nil
}

// Scan enumerates executables below root, sorted by path. A missing root is
// created and yields no candidates. Unreadable subdirectories are skipped.
func (s *Scanner) Scan(ctx context.Context, root string) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create apps directory: %w", err)
		}
		s.logger.Info("Created apps directory", zap.String("root", root))
		return []types.Candidate{}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat apps directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("apps path %s is not a directory", root)
	}

	timer := monitoring.NewTimer(s.metrics)

	var (
		mu         sync.Mutex
		candidates []types.Candidate
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			s.logger.Debug("Skipping unreadable entry", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() || !s.accept(root, p, d) {
			return nil
		}

		mu.Lock()
		candidates = append(candidates, types.Candidate{Name: paths.NameFromPath(p), Path: p})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
	if candidates == nil {
		candidates = []types.Candidate{}
	}

	elapsed := timer.Stop(len(candidates))
	s.logger.Debug("Scan complete",
		zap.String("root", root),
		zap.Int("candidates", len(candidates)),
		zap.Duration("elapsed", elapsed),
	)
	return candidates, nil
}

func (s *Scanner) accept(root, p string, d fs.DirEntry) bool {
	switch {
	case d.Type().IsRegular():
	case d.Type()&fs.ModeSymlink != 0:
		// Links are not followed, so check where they point.
		fi, err := fastwalk.StatDirEntry(p, d)
		if err != nil || !fi.Mode().IsRegular() {
			return false
		}
	default:
		return false
	}
	if rel, err := filepath.Rel(root, p); err == nil {
		rel = strings.ToLower(filepath.ToSlash(rel))
		for _, pattern := range s.patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
		}
	}
	if s.detect {
		return isExecutable(p)
	}
	return false
}

func isExecutable(p string) bool {
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		for _, want := range executableMIME {
			if m.Is(want) {
				return true
			}
		}
	}
	return false
}
