// Package logging configures the process-wide structured logger.
//
// # Overview
//
// The relay logs through log/slog. This package builds the handler from the
// telemetry.logging configuration:
//   - JSON, text or console output to stderr
//   - an optional rotating log file (lumberjack)
//   - credential redaction on every attribute
//   - request, session and provider IDs taken from the context
//   - a level that can be changed while running
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	logger.SetDefault()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "request accepted")  // includes request_id
//
// # Redaction
//
// When redact_secrets is enabled, values under keys such as api_key, token or
// authorization are masked, and strings that look like provider keys are
// rewritten:
//
//   - sk-abc123xyz789 → sk-***
//   - Bearer eyJhbGciOi... → Bearer ***
package logging
