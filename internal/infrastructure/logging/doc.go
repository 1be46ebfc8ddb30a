// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for the daemon
//   - Development: colored console output, used by the CLI on stderr
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Launching app", zap.String("name", "Notepad"))
//	logger.Warn("Record file unreadable", zap.Error(err))
package logging
