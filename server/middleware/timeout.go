package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds every request context by d. Handlers observe the deadline
// through ctx.Done(); the router maps an expired deadline to 504. The
// response writer is not wrapped, so streaming responses keep working.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
