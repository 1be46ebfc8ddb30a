// Package server assembles shelfd: the local app service, the Gin router with
// its middleware, the event stream and the metrics endpoint.
package server
