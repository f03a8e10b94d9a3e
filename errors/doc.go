// Package errors defines AppError, the single error shape returned to
// clients. Every failure on the request path (validation, dispatch,
// backend, timeout) is converted to an AppError carrying a code, an HTTP
// status and a retryable hint before it reaches the transport.
package errors
