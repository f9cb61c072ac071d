// Package logging provides structured logging utilities for the queryexport
// service.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Consistent attribute naming (operation, stage, run_id, ...)
//   - PII sanitization (recipient anonymization)
//   - Credential masking for connection strings and driver errors
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "export.run")
//	logger.Info("stage complete",
//	    logging.Stage("query"),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Error("connect failed", slog.String("dsn", logging.Mask(dsn)))
//
// # Security Considerations
//
//   - Recipient addresses are hashed to prevent PII leakage while allowing correlation
//   - Passwords in DSNs and key=value strings are masked
package logging
