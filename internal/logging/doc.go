// Package logging provides structured logging utilities for mailmerge.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package. Console output
// in text format is rendered by charmbracelet/log; JSON output uses slog's JSON handler.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "dispatch.list")
//	logger.Info("list finished",
//	    logging.List("newsletter"),
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("sending", logging.RecipientHash(recipient.Email))
//
// # Security Considerations
//
//   - Recipient addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly, only their length via SanitizeToken
package logging
