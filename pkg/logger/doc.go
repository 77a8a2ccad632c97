// Package logger builds the service's *slog.Logger.
//
// New applies a set of Option values (format, level, static attributes and
// context extractors) and wraps the resulting slog.Handler with a decorator
// that pulls request-scoped values, such as the chi request id, out of the
// context on every record.
//
// Attribute helpers in attr.go keep key names consistent across packages:
//
//	log.InfoContext(ctx, "account linked",
//	    logger.UserID(uid),
//	    logger.Provider("vkontakte"),
//	    logger.ProviderUserID(id),
//	)
//
// Error and UserID return an empty slog.Attr for nil input, so callers can
// pass them unconditionally.
package logger
