package registry

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// Query applies filter and then a case-insensitive substring search on the
// name. It never mutates the registry.
//
//   - All: registry order
//   - Favorites: favorite records in registry order
//   - Recent: records that have run, most recent first (stable on ties),
//     at most types.RecentLimit
func (m *Manager) Query(filter types.Filter, term string) []types.App {
	m.mu.RLock()
	out := make([]types.App, 0, len(m.apps))
	for _, a := range m.apps {
		switch filter {
		case types.FilterFavorites:
			if !a.Favorite {
				continue
			}
		case types.FilterRecent:
			if !a.HasRun() {
				continue
			}
		}
		out = append(out, a.Clone())
	}
	m.mu.RUnlock()

	if filter == types.FilterRecent {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LastRun.After(*out[j].LastRun)
		})
		if len(out) > types.RecentLimit {
			out = out[:types.RecentLimit]
		}
	}

	return matchName(out, term)
}

func matchName(apps []types.App, term string) []types.App {
	term = strings.ToLower(term)
	if term == "" {
		return apps
	}
	out := apps[:0]
	for _, a := range apps {
		if strings.Contains(strings.ToLower(a.Name), term) {
			out = append(out, a)
		}
	}
	return out
}

// Stats summarizes registry contents and run counts.
func (m *Manager) Stats() types.RegistryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := types.RegistryStats{Total: len(m.apps)}
	runs := make([]float64, 0, len(m.apps))
	best := 0
	for _, a := range m.apps {
		if a.Favorite {
			s.Favorites++
		}
		if a.HasRun() {
			s.Launched++
		}
		s.TotalLaunches += a.RunCount
		if a.RunCount > best {
			best = a.RunCount
			s.MostUsed = a.Name
		}
		runs = append(runs, float64(a.RunCount))
	}

	switch len(runs) {
	case 0:
	case 1:
		s.MeanRuns = runs[0]
	default:
		s.MeanRuns, s.StdDevRuns = stat.MeanStdDev(runs, nil)
	}
	return s
}
