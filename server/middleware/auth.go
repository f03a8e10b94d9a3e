package middleware

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/util"
)

// Auth validates the Bearer token with verifier and stores the Principal in
// the request context. Paths with one of skipPaths as prefix pass through.
func Auth(verifier auth.Verifier, skipPaths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, errors.Unauthorized("Authorization header required"))
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteError(w, errors.Unauthorized("Invalid authorization header format"))
				return
			}

			token = strings.TrimSpace(token)
			p, err := verifier.Verify(token)
			if err != nil {
				logger.WithContext(r.Context()).Debug("Bearer token rejected", logger.Fields(
					"token", util.MaskSecret(token, 6),
					logger.FieldError, err.Error(),
				))
				if stderrors.Is(err, auth.ErrTokenExpired) {
					WriteError(w, errors.TokenExpired())
					return
				}
				WriteError(w, errors.Unauthorized("Invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
