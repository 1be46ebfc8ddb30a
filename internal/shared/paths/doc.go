// Package paths provides the canonical on-disk layout: the data directory,
// the managed apps folder, the icon root and the record file, plus the
// name and icon derivations every front-end must agree on.
package paths
