package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/logger"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID takes the caller's X-Request-Id or generates one, echoes it on
// the response and stores it in the request context for logging and
// dispatch correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := logger.ContextWithRequestID(r.Context(), id)
			ctx = dispatch.WithContext(ctx, dispatch.NewContext(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
