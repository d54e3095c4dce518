// Package logger builds log/slog loggers with context extraction and optional
// Sentry reporting.
//
// Context extractors run on every log call and add request-scoped attributes
// such as the request ID:
//
//	log := logger.New(
//	    logger.WithLevelName(cfg.Log.Level),
//	    logger.WithComponent("api"),
//	    logger.WithExtractors(middlewares.RequestIDExtractor()),
//	)
//	log.InfoContext(ctx, "request processed", slog.Int("status", 200))
//	// {"level":"INFO","msg":"request processed","component":"api","status":200,"request_id":"..."}
//
// NewWithSentry additionally forwards warnings and errors to Sentry. With an
// empty DSN it behaves like New, so the same wiring works locally.
//
// NewNope returns a logger that discards everything; it is the default for
// components that accept an optional logger.
package logger
