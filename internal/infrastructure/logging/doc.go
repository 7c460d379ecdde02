// Package logging provides structured logging for pairgen.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - Text output for interactive use (default, written to stderr)
//   - JSON output for unattended runs such as "pairgen serve"
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("devices enumerated", "count", 2)
//	logger.Error("pairing failed", "udid", udid, "error", err)
//
// # Security
//
// Never log pairing record payloads. They are host credentials.
package logging
