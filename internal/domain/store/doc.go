// Package store persists the app registry to a single JSON record file.
//
// File format:
//
//	{"apps": [{"name": "...", "path": "...", "icon_path": "...",
//	           "favorite": false, "last_run": "", "run_count": 0}],
//	 "last_updated": "2024-03-01T10:20:30.123456789+01:00"}
//
// last_run is "" for apps that never ran. Missing fields default to their
// zero value and unknown keys are ignored.
package store
