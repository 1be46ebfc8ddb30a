// Package app is the service boundary shared by the CLI and the daemon.
//
// Local composes the store, scanner, registry and launch coordinator for a
// single process. ErrorKind and ErrorFromKind translate domain errors to and
// from the stable kind strings used in CLI output and API responses.
package app
