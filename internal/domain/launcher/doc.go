// Package launcher starts registered apps as detached child processes and
// records successful launches in the registry.
//
// Each request moves through requested, spawning and then success or failed,
// and carries a launch ID in every log line. The coordinator does not wait
// for the child, capture its output or track its exit.
package launcher
