// Package logging provides structured logging for PageVault.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Field-based contextual logging
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/pagevault.log",
//	})
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Log Levels
//
// Four log levels are supported:
//
//	logger.Debug("detailed debugging info", "key", "value")
//	logger.Info("informational message", "key", "value")
//	logger.Warn("warning message", "key", "value")
//	logger.Error("error message", "key", "value")
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("rekey complete",
//	    "path", "/data/app.pv",
//	    "pages", 128,
//	    "duration_ms", 12,
//	)
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	dbLogger := logger.WithFields("path", db.Path())
//
//	// All subsequent logs include these fields
//	dbLogger.Info("transaction committed")
//
// # Output Destinations
//
// Configure output destination:
//
//	logging.Config{Output: "stderr"}               // Standard error (default)
//	logging.Config{Output: "stdout"}               // Standard output
//	logging.Config{Output: "/var/log/pagevault.log"} // File path
package logging
