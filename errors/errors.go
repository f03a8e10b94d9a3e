package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error every layer hands to the HTTP front. Its code and
// message reach the client; Cause stays server side.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	// HTTPStatus is the status the front answers with.
	HTTPStatus int   `json:"-"`
	Cause      error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds one detail entry and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New builds an AppError with an explicit status. Retryable follows code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

// defaultStatus is the status each code answers with unless New overrides it.
var defaultStatus = map[ErrorCode]int{
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeMissingField:       http.StatusBadRequest,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeExternalService:    http.StatusBadGateway,
}

func build(code ErrorCode, message string) *AppError {
	status, ok := defaultStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return New(code, message, status)
}

// ServiceUnavailable reports that the named backend is not taking work.
func ServiceUnavailable(service string) *AppError {
	return build(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service)).
		WithDetail("service", service)
}

// Timeout reports that operation ran past its deadline.
func Timeout(operation string) *AppError {
	return build(ErrCodeTimeout, "The request took too long. Please try again.").
		WithDetail("operation", operation)
}

func RateLimited() *AppError {
	return build(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// Validation is a 400 that shows message to the client as is.
func Validation(message string) *AppError {
	return build(ErrCodeInvalidInput, message)
}

// InvalidInput is a 400 naming the offending field.
func InvalidInput(field, reason string) *AppError {
	e := build(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func MissingField(field string) *AppError {
	return build(ErrCodeMissingField, fmt.Sprintf("Required parameter '%s' was not provided", field)).
		WithDetail("field", field)
}

// PayloadTooLarge reports a body over limit, a human size such as "25MB".
func PayloadTooLarge(limit string) *AppError {
	return build(ErrCodePayloadTooLarge, fmt.Sprintf("Request body exceeds the %s limit.", limit)).
		WithDetail("limit", limit)
}

func NotFound(method, path string) *AppError {
	return build(ErrCodeNotFound, fmt.Sprintf("No route for %s %s", method, path))
}

func MethodNotAllowed(method, path string) *AppError {
	return build(ErrCodeMethodNotAllowed, fmt.Sprintf("Method %s is not allowed on %s", method, path))
}

// Unauthorized is a 401. An empty reason gets a generic message.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return build(ErrCodeUnauthorized, reason)
}

func TokenExpired() *AppError {
	return build(ErrCodeTokenExpired, "The bearer token has expired.")
}

// NoResponse reports an inference engine that finished without a value.
func NoResponse() *AppError {
	return build(ErrCodeNoResponse, "No response returned by the inference engine")
}

// HandlerFailed surfaces a backend handler failure under its own message.
func HandlerFailed(message string, cause error) *AppError {
	return build(ErrCodeHandlerError, message).WithCause(cause)
}

// Internal is a 500 whose cause is never shown to the client.
func Internal(cause error) *AppError {
	return build(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}

// ExternalServiceError reports a failed call to a remote inference service.
func ExternalServiceError(service string, cause error) *AppError {
	return build(ErrCodeExternalService, fmt.Sprintf("The %s service encountered an error. Please try again.", service)).
		WithDetail("service", service).
		WithCause(cause)
}
