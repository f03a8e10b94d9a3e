package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
)

// Recovery recovers from panics in the transport layer, logs the stack and
// answers 500. Panics inside inference handlers are handled by the dispatch
// loop and never reach here.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithContext(r.Context()).Error("Panic recovered", map[string]interface{}{
						"error":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					})
					WriteError(w, errors.Internal(fmt.Errorf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
