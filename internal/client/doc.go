// Package client talks to a running shelfd over HTTP.
//
// Remote implements app.Service, so the CLI can switch between the in-process
// registry and the daemon with --remote. Requests go through resty on top of
// a retryablehttp transport and a circuit breaker; error kinds reported by the
// daemon are turned back into the domain's typed errors.
package client
