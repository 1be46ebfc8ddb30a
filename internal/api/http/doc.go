// Package http exposes the app service as a JSON API for shelfd.
//
// Failures are reported as {"success": false, "kind": ..., "error": ...}
// where kind is one of the app.Kind constants or "bad_request".
package http
