// Package utils holds small validation and hashing helpers shared by the
// registry and the app service.
package utils
