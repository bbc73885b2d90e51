// Package logger builds the *slog.Logger used across the two-factor service.
//
// New applies functional options on top of production-safe defaults (JSON,
// INFO, stdout) and wraps the resulting handler so that attributes pulled
// from context.Context (request id, acting account) are added to every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "twofactor"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.WarnContext(ctx, "audit emit failed", logger.AccountID(id), logger.Error(err))
//
// Attribute helpers return an empty slog.Attr for nil values, which slog
// drops, so callers can pass them without nil checks.
package logger
