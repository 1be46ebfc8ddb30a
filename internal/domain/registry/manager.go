package registry

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/paths"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/utils"
)

// Store is the persistence the registry flushes to after every mutation.
type Store interface {
	Load() []types.App
	Save(apps []types.App) error
}

// Options configures a Manager.
type Options struct {
	// AppsDir receives executables copied in by Add.
	AppsDir string
	// StrictRename rejects renames that duplicate another record's name.
	StrictRename bool
	// OnSaveError is called after a failed flush, once the failure is logged.
	OnSaveError func(error)
}

// Manager is the in-memory, ordered app registry. Registry order is
// insertion order and is what the All filter and name lookups follow.
type Manager struct {
	mu    sync.RWMutex
	apps  []types.App
	store Store
	opts  Options

	subMu       sync.RWMutex
	subscribers map[int]func(types.Event)
	nextSub     int

	logger  *logging.Logger
	metrics *monitoring.Metrics

	copyFile func(src, dir string) (string, error)
}

// NewManager creates an empty registry. Call Hydrate to load the store.
func NewManager(store Store, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:       store,
		opts:        opts,
		subscribers: make(map[int]func(types.Event)),
		logger:      logger.Named("registry"),
		metrics:     metrics,
		copyFile:    copyInto,
	}
}

// Hydrate replaces the registry contents with what the store holds.
func (m *Manager) Hydrate() int {
	apps := m.store.Load()

	m.mu.Lock()
	m.apps = apps
	n := len(m.apps)
	m.mu.Unlock()

	m.metrics.SetRegistryApps(n)
	m.logger.Debug("Registry hydrated", zap.Int("apps", n))
	return n
}

// Len returns the number of records.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.apps)
}

// List returns every record in registry order.
func (m *Manager) List() []types.App {
	return m.Query(types.FilterAll, "")
}

// Get returns the first record whose name equals name exactly.
func (m *Manager) Get(name string) (types.App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(name)
	if i < 0 {
		return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m.apps[i].Clone(), nil
}

// Find returns the first record, in registry order, whose name contains
// query case-insensitively.
func (m *Manager) Find(query string) (types.App, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return types.App{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.apps {
		if strings.Contains(strings.ToLower(a.Name), q) {
			return a.Clone(), nil
		}
	}
	return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, query)
}

// Add copies the executable at path into the apps directory and registers
// it under the name derived from its file name. The registry is unchanged
// when the name is taken or the copy fails. The copy runs without holding
// the registry lock; the name is checked again before the insert and the
// copied file is removed if it was taken meanwhile.
func (m *Manager) Add(path string) (types.App, error) {
	name := paths.NameFromPath(path)
	if name == "" || name == "." {
		return types.App{}, fmt.Errorf("%w: %q", ErrInvalidName, path)
	}

	m.mu.RLock()
	taken := m.indexOf(name) >= 0
	m.mu.RUnlock()
	if taken {
		return types.App{}, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	dest, err := m.copyFile(path, m.opts.AppsDir)
	if err != nil {
		m.logger.Warn("Copy failed", zap.String("source", path), zap.Error(err))
		return types.App{}, fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}

	m.mu.Lock()
	if m.indexOf(name) >= 0 {
		m.mu.Unlock()
		if err := os.Remove(dest); err != nil {
			m.logger.Warn("Failed to remove copied file", zap.String("path", dest), zap.Error(err))
		}
		return types.App{}, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	app := types.App{Name: name, Path: dest}
	m.apps = append(m.apps, app)
	m.persist("add")
	m.mu.Unlock()

	m.logger.Info("App added", zap.String("name", name), zap.String("path", dest))
	m.publish(types.NewEvent(types.EventAdded, name))
	return app, nil
}

// Remove drops the first record named name. The executable is left on disk.
func (m *Manager) Remove(name string) (types.App, error) {
	m.mu.Lock()
	i := m.indexOf(name)
	if i < 0 {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	removed := m.apps[i]
	m.apps = append(m.apps[:i], m.apps[i+1:]...)
	m.persist("remove")
	m.mu.Unlock()

	m.logger.Info("App removed", zap.String("name", name))
	m.publish(types.NewEvent(types.EventRemoved, name))
	return removed.Clone(), nil
}

// Purge deletes the executable and then drops the record. If the file
// cannot be deleted the registry is left untouched.
func (m *Manager) Purge(name string) (types.App, error) {
	m.mu.Lock()
	i := m.indexOf(name)
	if i < 0 {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	removed := m.apps[i]
	if err := os.Remove(removed.Path); err != nil && !os.IsNotExist(err) {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("failed to delete %s: %w", removed.Path, err)
	}
	m.apps = append(m.apps[:i], m.apps[i+1:]...)
	m.persist("purge")
	m.mu.Unlock()

	m.logger.Info("App purged", zap.String("name", name), zap.String("path", removed.Path))
	m.publish(types.NewEvent(types.EventRemoved, name))
	return removed.Clone(), nil
}

// Rename changes a record's display name. Duplicate names are allowed
// unless the manager runs with StrictRename.
func (m *Manager) Rename(name, newName string) (types.App, error) {
	newName = strings.TrimSpace(newName)
	if err := utils.ValidateAppName(newName); err != nil {
		return types.App{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	m.mu.Lock()
	i := m.indexOf(name)
	if i < 0 {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if m.opts.StrictRename {
		if j := m.indexOf(newName); j >= 0 && j != i {
			m.mu.Unlock()
			return types.App{}, fmt.Errorf("%w: %s", ErrNameCollision, newName)
		}
	}
	m.apps[i].Name = newName
	renamed := m.apps[i].Clone()
	m.persist("rename")
	m.mu.Unlock()

	ev := types.NewEvent(types.EventRenamed, newName)
	ev.OldName = name
	m.publish(ev)
	return renamed, nil
}

// SetFavorite sets the favorite flag on the first record named name.
func (m *Manager) SetFavorite(name string, favorite bool) (types.App, error) {
	m.mu.Lock()
	i := m.indexOf(name)
	if i < 0 {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	m.apps[i].Favorite = favorite
	updated := m.apps[i].Clone()
	m.persist("favorite")
	m.mu.Unlock()

	m.publish(types.NewEvent(types.EventFavorite, name))
	return updated, nil
}

// RecordLaunch stamps a successful launch on the record that was launched.
// Neither names nor paths are unique on their own (a renamed record and the
// rediscovered original share a path), so the record is matched on both.
// When it was renamed while the launch was in flight, a record whose path
// no other record shares is accepted instead.
func (m *Manager) RecordLaunch(name, path string, at time.Time) (types.App, error) {
	m.mu.Lock()
	i := m.indexOfLaunched(name, path)
	if i < 0 {
		m.mu.Unlock()
		return types.App{}, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, path)
	}
	m.apps[i].LastRun = &at
	m.apps[i].RunCount++
	updated := m.apps[i].Clone()
	m.persist("launch")
	m.mu.Unlock()

	m.publish(types.NewEvent(types.EventLaunched, updated.Name))
	return updated, nil
}

func (m *Manager) indexOfLaunched(name, path string) int {
	byPath, matches := -1, 0
	for i := range m.apps {
		if m.apps[i].Path != path {
			continue
		}
		if m.apps[i].Name == name {
			return i
		}
		byPath = i
		matches++
	}
	if matches == 1 {
		return byPath
	}
	return -1
}

// Subscribe registers fn for change events and returns a function that
// removes it. Events are delivered synchronously after the change is applied.
func (m *Manager) Subscribe(fn func(types.Event)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) publish(ev types.Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, fn := range m.subscribers {
		fn(ev)
	}
}

// indexOf must be called with mu held.
func (m *Manager) indexOf(name string) int {
	for i := range m.apps {
		if m.apps[i].Name == name {
			return i
		}
	}
	return -1
}

// persist must be called with mu held. A failed flush is logged and counted
// but never changes the outcome of the operation that triggered it.
func (m *Manager) persist(op string) {
	m.metrics.RecordMutation(op)
	m.metrics.SetRegistryApps(len(m.apps))

	snapshot := make([]types.App, len(m.apps))
	for i := range m.apps {
		snapshot[i] = m.apps[i].Clone()
	}
	if err := m.store.Save(snapshot); err != nil {
		m.logger.Warn("Config save error", zap.String("op", op), zap.Error(err))
		m.metrics.RecordSaveError()
		if m.opts.OnSaveError != nil {
			m.opts.OnSaveError(err)
		}
	}
}
