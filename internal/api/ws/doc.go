// Package ws streams registry events to WebSocket clients on /stream.
package ws
