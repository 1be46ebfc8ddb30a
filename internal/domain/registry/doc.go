// Package registry holds the ordered, in-memory set of tracked apps and
// keeps it consistent with the managed directory and the record file.
//
// Components:
//   - Manager: queries, lookups and mutations; flushes to the Store after
//     every mutation
//   - Reconcile: merges a directory scan, then prunes records whose file is gone
//
// Name uniqueness is enforced when records are inserted (scan, Add) but not
// on Rename unless Options.StrictRename is set. Launch bookkeeping is keyed by
// path for that reason.
//
// Example Usage:
//
//	reg := registry.NewManager(store.NewFile(path, logger), registry.Options{AppsDir: dir}, logger, metrics)
//	reg.Hydrate()
//	reg.Reconcile(candidates)
//	recent := reg.Query(types.FilterRecent, "")
package registry
