package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kbukum/endpoints/errors"
)

// Middleware wraps an http.Handler with additional behavior.
// It is the single middleware type for the server and runs in front of
// the Gin engine, so it covers every route.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// WriteError writes err as the standard JSON error body.
func WriteError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}
