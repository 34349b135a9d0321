// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) suited to a command-line tool.
//
// # Run Correlation
//
// Every invocation of the reconciler is stamped with a run ID. The WithRunID
// helper attaches that ID to the log entry, ensuring that all logs belonging
// to one reconciliation run can be correlated with the audit report it wrote.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Scan started")
//
//	// For a reconciliation run:
//	l := logger.WithRunID(log, runID)
//	l.Error("Repair failed", zap.Error(err))
package logger
