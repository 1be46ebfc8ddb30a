package registry

import (
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// Reconcile merges a scan into the registry in two phases:
//
//  1. each candidate whose name matches no record is appended with default
//     metadata; the first candidate with a given name wins
//  2. every record whose path no longer exists is dropped, including records
//     that were never part of the scan
//
// Running it twice with the same candidates changes nothing the second time.
func (m *Manager) Reconcile(candidates []types.Candidate) types.ReconcileResult {
	var result types.ReconcileResult

	m.mu.Lock()
	known := make(map[string]struct{}, len(m.apps)+len(candidates))
	for _, a := range m.apps {
		known[a.Name] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := known[c.Name]; ok {
			continue
		}
		known[c.Name] = struct{}{}
		m.apps = append(m.apps, types.App{Name: c.Name, Path: c.Path})
		result.Added = append(result.Added, c.Name)
	}

	kept := m.apps[:0]
	for _, a := range m.apps {
		if _, err := os.Stat(a.Path); err != nil {
			result.Pruned = append(result.Pruned, a.Name)
			continue
		}
		kept = append(kept, a)
	}
	m.apps = kept

	if result.Changed() {
		m.persist("reconcile")
	}
	m.mu.Unlock()

	if result.Changed() {
		m.logger.Info("Registry reconciled",
			zap.Strings("added", result.Added),
			zap.Strings("pruned", result.Pruned),
		)
		m.publish(types.NewEvent(types.EventReconciled, ""))
	}
	return result
}
