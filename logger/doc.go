// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped by component and enriched from a request context so
// that every line written while serving a request carries its request id:
//
//	ctx = logger.ContextWithRequestID(ctx, id)
//	logger.Get("dispatch").WithContext(ctx).Info("delivered")
package logger
