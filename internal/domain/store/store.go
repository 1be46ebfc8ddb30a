package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// ErrSave wraps every failure to write the record file.
var ErrSave = errors.New("config save error")

// document is the on-disk shape of the record file.
type document struct {
	Apps        []record `json:"apps"`
	LastUpdated string   `json:"last_updated"`
}

type record struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IconPath string `json:"icon_path"`
	Favorite bool   `json:"favorite"`
	LastRun  string `json:"last_run"`
	RunCount int    `json:"run_count"`
}

// lastRunLayouts are tried in order. Offset-less timestamps were written by
// older builds in local time.
var lastRunLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// File persists registry records as one JSON document. Writes overwrite the
// file in place; concurrent writers from other processes are not coordinated
// and the last save wins.
type File struct {
	path   string
	logger *logging.Logger

	mu          sync.Mutex
	lastUpdated time.Time
}

// NewFile creates a store for the record file at path.
func NewFile(path string, logger *logging.Logger) *File {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &File{path: path, logger: logger.Named("store")}
}

// Path returns the record file location.
func (f *File) Path() string {
	return f.path
}

// LastUpdated returns the last_updated stamp seen by the most recent Load or
// written by the most recent Save.
func (f *File) LastUpdated() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdated
}

// Load reads all records. It never fails: a missing file yields no records
// and an unreadable or malformed file is logged and treated as empty.
func (f *File) Load() []types.App {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("Config load error, starting empty",
				zap.String("path", f.path), zap.Error(err))
		}
		return []types.App{}
	}

	data, charset, err := toUTF8(data)
	if err != nil {
		f.logger.Warn("Config load error, starting empty",
			zap.String("path", f.path), zap.Error(err))
		return []types.App{}
	}
	if charset != "UTF-8" {
		f.logger.Info("Transcoded record file", zap.String("charset", charset))
	}

	var doc document
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		f.logger.Warn("Config load error, starting empty",
			zap.String("path", f.path), zap.Error(err))
		return []types.App{}
	}

	f.mu.Lock()
	f.lastUpdated = parseTime(doc.LastUpdated)
	f.mu.Unlock()

	apps := make([]types.App, 0, len(doc.Apps))
	for _, r := range doc.Apps {
		apps = append(apps, r.toApp())
	}
	return apps
}

// Save replaces the file contents with apps and a fresh last_updated stamp.
func (f *File) Save(apps []types.App) error {
	now := time.Now()
	doc := document{
		Apps:        make([]record, 0, len(apps)),
		LastUpdated: now.Format(time.RFC3339Nano),
	}
	for _, a := range apps {
		doc.Apps = append(doc.Apps, fromApp(a))
	}

	data, err := sonic.ConfigStd.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSave, err)
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrSave, err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	f.mu.Lock()
	f.lastUpdated = now
	f.mu.Unlock()
	return nil
}

func (r record) toApp() types.App {
	a := types.App{
		Name:     r.Name,
		Path:     r.Path,
		IconPath: r.IconPath,
		Favorite: r.Favorite,
		RunCount: r.RunCount,
	}
	if a.RunCount < 0 {
		a.RunCount = 0
	}
	if t := parseTime(r.LastRun); !t.IsZero() {
		a.LastRun = &t
	}
	return a
}

func fromApp(a types.App) record {
	r := record{
		Name:     a.Name,
		Path:     a.Path,
		IconPath: a.IconPath,
		Favorite: a.Favorite,
		RunCount: a.RunCount,
	}
	if a.LastRun != nil {
		r.LastRun = a.LastRun.Format(time.RFC3339Nano)
	}
	return r
}

// parseTime returns the zero time for empty or unparseable input.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range lastRunLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
