// Package types provides the data structures shared by every shelf component.
//
// Core Types:
//   - App: one tracked portable executable and its usage stats
//   - AppInfo: App plus icon, size and modification time
//   - Filter: all, favorites or recent
//   - Candidate: an executable found by a directory scan
//   - Event: registry change notification
//
// Example Usage:
//
//	filter, err := types.ParseFilter("recent")
//	apps := registry.Query(filter, "note")
package types
