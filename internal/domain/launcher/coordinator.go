package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/id"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// State is a launch request's position in its lifecycle.
type State string

const (
	StateRequested State = "requested"
	StateSpawning  State = "spawning"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
)

// compressedExts are packed portable apps that can't be run in place.
var compressedExts = map[string]bool{
	".7z":  true,
	".zip": true,
}

// Registry is the part of the app registry the coordinator needs.
type Registry interface {
	Find(query string) (types.App, error)
	RecordLaunch(name, path string, at time.Time) (types.App, error)
}

// Coordinator spawns apps and records successful launches.
type Coordinator struct {
	registry Registry
	spawner  Spawner
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// NewCoordinator creates a coordinator. A nil spawner means ExecSpawner{}.
func NewCoordinator(registry Registry, spawner Spawner, logger *logging.Logger, metrics *monitoring.Metrics) *Coordinator {
	if spawner == nil {
		spawner = ExecSpawner{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		registry: registry,
		spawner:  spawner,
		logger:   logger.Named("launcher"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// LaunchByName resolves query to the first matching app and launches it.
func (c *Coordinator) LaunchByName(ctx context.Context, query string, elevated bool) (*types.LaunchResult, error) {
	app, err := c.registry.Find(query)
	if err != nil {
		return nil, err
	}
	return c.Launch(ctx, app, elevated)
}

// Launch starts app with the parent directory of its path as working
// directory and returns once the spawn call has returned. On success the
// app's run count and last run time are updated and flushed; on failure the
// registry is left alone and a *LaunchError is returned.
func (c *Coordinator) Launch(ctx context.Context, app types.App, elevated bool) (*types.LaunchResult, error) {
	reqID := id.NewLaunchID()
	mode := "normal"
	if elevated {
		mode = "elevated"
	}
	log := c.logger.With(
		zap.String("request_id", reqID.String()),
		zap.String("app", app.Name),
		zap.String("mode", mode),
	)
	log.Debug("Launch", zap.String("state", string(StateRequested)), zap.String("path", app.Path))

	fail := func(cause error) (*types.LaunchResult, error) {
		c.metrics.RecordLaunch(mode, false)
		log.Warn("Launch", zap.String("state", string(StateFailed)), zap.Error(cause))
		return nil, &LaunchError{Name: app.Name, Path: app.Path, Elevated: elevated, Cause: cause}
	}

	if err := checkRunnable(app.Path); err != nil {
		return fail(err)
	}

	dir := filepath.Dir(app.Path)
	log.Debug("Launch", zap.String("state", string(StateSpawning)), zap.String("dir", dir))
	pid, err := c.spawner.Spawn(ctx, SpawnRequest{Path: app.Path, Dir: dir, Elevated: elevated})
	if err != nil {
		return fail(err)
	}

	at := c.now()
	result := &types.LaunchResult{
		RequestID: reqID.String(),
		Name:      app.Name,
		Path:      app.Path,
		Elevated:  elevated,
		PID:       pid,
		RunCount:  app.RunCount + 1,
		LaunchAt:  at,
	}
	if updated, err := c.registry.RecordLaunch(app.Name, app.Path, at); err != nil {
		log.Warn("Launched app is no longer registered", zap.Error(err))
	} else {
		result.RunCount = updated.RunCount
	}

	c.metrics.RecordLaunch(mode, true)
	log.Info("Launch", zap.String("state", string(StateSuccess)), zap.Int("pid", pid), zap.Int("run_count", result.RunCount))
	return result, nil
}

func checkRunnable(path string) error {
	if compressedExts[strings.ToLower(filepath.Ext(path))] {
		return ErrCompressedApp
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotExecutable, path)
	}
	return nil
}
