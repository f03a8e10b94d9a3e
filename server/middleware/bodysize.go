package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/util"
)

const defaultMaxBodySize = 25 * 1024 * 1024 // 25MB

// BodySizeLimit restricts the request body to maxSize (e.g. "25MB").
// Requests that declare a larger Content-Length are rejected with 413
// before the handler runs; streamed bodies fail on read, see IsBodyTooLarge.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				WriteError(w, errors.PayloadTooLarge(maxSize))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from reading past the body limit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return stderrors.As(err, &mbe)
}
