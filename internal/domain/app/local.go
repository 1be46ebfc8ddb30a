package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/domain/launcher"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/registry"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/scanner"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/store"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/config"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/paths"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/utils"
)

// Local wires store, scanner, registry and launcher in one process.
type Local struct {
	library  config.LibraryConfig
	store    *store.File
	scanner  *scanner.Scanner
	registry *registry.Manager
	launcher *launcher.Coordinator
	logger   *logging.Logger
}

var _ Service = (*Local)(nil)

// NewLocal builds the local service from configuration. A nil spawner uses
// launcher.ExecSpawner with the configured elevation helper.
func NewLocal(cfg *config.Config, spawner launcher.Spawner, logger *logging.Logger, metrics *monitoring.Metrics) (*Local, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	lib := cfg.Library

	sc, err := scanner.New(scanner.Options{
		Patterns:       lib.ScanPatterns,
		DetectBinaries: lib.DetectBinaries,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	st := store.NewFile(lib.StorePath, logger)
	reg := registry.NewManager(st, registry.Options{
		AppsDir:      lib.AppsDir,
		StrictRename: lib.StrictRename,
	}, logger, metrics)

	if spawner == nil {
		spawner = launcher.ExecSpawner{ElevateCommand: cfg.Launch.ElevateCommand}
	}

	return &Local{
		library:  lib,
		store:    st,
		scanner:  sc,
		registry: reg,
		launcher: launcher.NewCoordinator(reg, spawner, logger, metrics),
		logger:   logger.Named("app"),
	}, nil
}

// Open runs the startup sequence: hydrate from the record file, then
// reconcile against a fresh scan of the apps directory.
func (l *Local) Open(ctx context.Context) error {
	n := l.registry.Hydrate()
	res, err := l.Refresh(ctx)
	if err != nil {
		return err
	}
	l.logger.Debug("Shelf opened",
		zap.Int("loaded", n),
		zap.Int("added", len(res.Added)),
		zap.Int("pruned", len(res.Pruned)),
	)
	return nil
}

// Registry exposes the registry for event subscriptions.
func (l *Local) Registry() *registry.Manager {
	return l.registry
}

// Store exposes the record file.
func (l *Local) Store() *store.File {
	return l.store
}

func (l *Local) List(_ context.Context, filter types.Filter, search string) ([]types.App, error) {
	return l.registry.Query(filter, search), nil
}

func (l *Local) Find(_ context.Context, query string) (types.App, error) {
	return l.registry.Find(query)
}

// Info returns the record with its derived icon and on-disk facts.
func (l *Local) Info(_ context.Context, name string) (types.AppInfo, error) {
	a, err := l.registry.Get(name)
	if err != nil {
		return types.AppInfo{}, err
	}

	info := types.AppInfo{
		App:  a,
		Icon: paths.ResolveIcon(l.library.IconsDir, a.Name, l.library.IconExt),
	}
	if fi, err := os.Stat(a.Path); err == nil {
		info.Exists = true
		info.Size = fi.Size()
		info.ModTime = fi.ModTime()
		if !fi.IsDir() {
			sum, err := utils.DefaultHasher().HashFile(a.Path)
			if err != nil {
				l.logger.Debug("Checksum failed", zap.String("path", a.Path), zap.Error(err))
			}
			info.Checksum = sum
		}
	}
	return info, nil
}

func (l *Local) Add(_ context.Context, path string) (types.App, error) {
	return l.registry.Add(path)
}

// Remove drops the record. With purge the executable is deleted as well.
func (l *Local) Remove(_ context.Context, name string, purge bool) (types.App, error) {
	if purge {
		return l.registry.Purge(name)
	}
	return l.registry.Remove(name)
}

func (l *Local) Rename(_ context.Context, name, newName string) (types.App, error) {
	return l.registry.Rename(name, newName)
}

func (l *Local) SetFavorite(_ context.Context, name string, favorite bool) (types.App, error) {
	return l.registry.SetFavorite(name, favorite)
}

func (l *Local) Launch(ctx context.Context, name string, elevated bool) (*types.LaunchResult, error) {
	a, err := l.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return l.launcher.Launch(ctx, a, elevated)
}

// Refresh rescans the apps directory and reconciles the registry with it.
func (l *Local) Refresh(ctx context.Context) (types.ReconcileResult, error) {
	candidates, err := l.scanner.Scan(ctx, l.library.AppsDir)
	if err != nil {
		return types.ReconcileResult{}, err
	}
	return l.registry.Reconcile(candidates), nil
}

func (l *Local) Stats(_ context.Context) (types.RegistryStats, error) {
	return l.registry.Stats(), nil
}
