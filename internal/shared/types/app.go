package types

import (
	"fmt"
	"strings"
	"time"
)

// App is one portable executable tracked by the shelf.
//
// Name is the display identity and the key used by every lookup. Path is
// where the executable actually lives. IconPath is carried through from the
// record file untouched; the icon shown to users is derived from Name.
type App struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	IconPath string     `json:"icon_path"`
	Favorite bool       `json:"favorite"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	RunCount int        `json:"run_count"`
}

// Clone returns a deep copy so callers can't mutate registry state.
func (a App) Clone() App {
	if a.LastRun != nil {
		t := *a.LastRun
		a.LastRun = &t
	}
	return a
}

// HasRun reports whether the app was ever launched successfully.
func (a App) HasRun() bool {
	return a.LastRun != nil
}

// AppInfo is the detail view of an app: the record plus facts read from disk.
type AppInfo struct {
	App
	Icon     string    `json:"icon,omitempty"`
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time,omitempty"`
	Checksum string    `json:"checksum,omitempty"` // BLAKE2b-256 of the executable
}

// Filter selects a subset of the registry.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterFavorites Filter = "favorites"
	FilterRecent    Filter = "recent"
)

// RecentLimit caps the Recent filter.
const RecentLimit = 10

// ParseFilter accepts the filter names case-insensitively. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterFavorites:
		return FilterFavorites, nil
	case FilterRecent:
		return FilterRecent, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Candidate is an executable found by a directory scan.
type Candidate struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ReconcileResult summarizes one scan reconciliation.
type ReconcileResult struct {
	Added  []string `json:"added"`
	Pruned []string `json:"pruned"`
}

// Changed reports whether reconciliation touched the registry.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Pruned) > 0
}

// RegistryStats summarizes registry contents and usage.
type RegistryStats struct {
	Total         int     `json:"total"`
	Favorites     int     `json:"favorites"`
	Launched      int     `json:"launched"`
	TotalLaunches int     `json:"total_launches"`
	MeanRuns      float64 `json:"mean_runs"`
	StdDevRuns    float64 `json:"stddev_runs"`
	MostUsed      string  `json:"most_used,omitempty"`
}

// LaunchResult reports a successful launch.
type LaunchResult struct {
	RequestID string    `json:"request_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Elevated  bool      `json:"elevated"`
	PID       int       `json:"pid"`
	RunCount  int       `json:"run_count"`
	LaunchAt  time.Time `json:"launched_at"`
}
