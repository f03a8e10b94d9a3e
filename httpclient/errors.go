package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/resilience"
)

// ErrorCode classifies a failed backend call.
type ErrorCode int

const (
	// ErrCodeTimeout means the attempt ran out of time.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection means the backend could not be reached.
	ErrCodeConnection
	// ErrCodeAuth means the backend refused our credentials (401/403).
	ErrCodeAuth
	// ErrCodeNotFound means the backend has no such route (404).
	ErrCodeNotFound
	// ErrCodeRateLimit means the backend asked us to slow down (429).
	ErrCodeRateLimit
	// ErrCodeValidation means the backend rejected the input (other 4xx).
	ErrCodeValidation
	// ErrCodeServer means the backend failed (5xx).
	ErrCodeServer
)

var codeNames = [...]string{"timeout", "connection", "auth", "not_found", "rate_limit", "validation", "server"}

// String returns the code name.
func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

// Error is a classified backend call failure.
type Error struct {
	// StatusCode is zero for failures below HTTP.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	// Body is the backend's response body, if any.
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTimeoutError wraps an attempt that hit its deadline.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode returns nil for 2xx and a classified error otherwise.
// Rate limits and 5xx are retryable.
func ClassifyStatusCode(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Message: fmt.Sprintf("HTTP %d", status), Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	default:
		e.Code = ErrCodeServer
		e.Retryable = status >= 500
	}
	return e
}

// IsBackendFailure reports whether err reflects backend health rather than
// a rejected request. Only backend failures count against the circuit.
func IsBackendFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code != ErrCodeValidation && e.Code != ErrCodeNotFound
	}
	return err != nil
}

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// ToAppError converts a backend call failure into the error surfaced to
// clients. service names the backend.
func ToAppError(service string, err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ServiceUnavailable(service).WithCause(err)
	}
	var e *Error
	if !errors.As(err, &e) {
		return apperrors.ExternalServiceError(service, err)
	}
	switch e.Code {
	case ErrCodeTimeout:
		return apperrors.Timeout(service).WithCause(err)
	case ErrCodeConnection:
		return apperrors.ServiceUnavailable(service).WithCause(err)
	case ErrCodeRateLimit:
		return apperrors.RateLimited().WithCause(err)
	case ErrCodeValidation:
		msg := e.Message
		if len(e.Body) > 0 {
			msg = string(e.Body)
		}
		return apperrors.Validation(msg).WithCause(err)
	default:
		return apperrors.ExternalServiceError(service, err)
	}
}
