// Package middleware provides the Gin middleware stack of the shelf daemon:
// loopback-only CORS, per-IP rate limiting and request logging with IDs.
package middleware
