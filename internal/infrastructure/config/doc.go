// Package config provides 12-factor configuration for the shelf CLI and daemon.
//
// Configuration is loaded from environment variables with defaults. A YAML or
// TOML file passed with --config is decoded on top, so file keys win over the
// environment the same way a CLI flag would.
//
// Configuration Sections:
//   - Library: apps folder, icon root, record file, scan patterns, rename policy
//   - Launch: elevation helper for non-Windows hosts
//   - Server: daemon listen address
//   - Remote: daemon URL used by the CLI
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting for the daemon
//
// Environment Variables:
//   - SHELF_APPS_DIR, SHELF_ICONS_DIR, SHELF_STORE_PATH, SHELF_ICON_EXT
//   - SHELF_SCAN_PATTERNS, SHELF_DETECT_BINARIES, SHELF_STRICT_RENAME
//   - SHELF_ELEVATE_CMD, SHELF_HOST, SHELF_PORT, SHELF_REMOTE
//   - LOG_LEVEL, LOG_DEV, RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
