package app

import (
	"context"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// Service is what every front-end talks to. Local runs the registry in
// process; client.Remote forwards to a running shelfd.
//
// Names passed to Service methods are exact record names. Front-ends that
// accept partial names resolve them with Find first.
type Service interface {
	List(ctx context.Context, filter types.Filter, search string) ([]types.App, error)
	Find(ctx context.Context, query string) (types.App, error)
	Info(ctx context.Context, name string) (types.AppInfo, error)
	Add(ctx context.Context, path string) (types.App, error)
	Remove(ctx context.Context, name string, purge bool) (types.App, error)
	Rename(ctx context.Context, name, newName string) (types.App, error)
	SetFavorite(ctx context.Context, name string, favorite bool) (types.App, error)
	Launch(ctx context.Context, name string, elevated bool) (*types.LaunchResult, error)
	Refresh(ctx context.Context) (types.ReconcileResult, error)
	Stats(ctx context.Context) (types.RegistryStats, error)
}
