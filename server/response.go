package server

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
)

// RespondWithError writes err as the standard JSON error body. Errors that
// are not *errors.AppError become a 500 without leaking their text.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= 500 {
		logger.WithContext(c.Request.Context()).Error("Request failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"code":            appErr.Code,
			"path":            c.Request.URL.Path,
		})
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func noRoute(c *gin.Context) {
	RespondWithError(c, errors.NotFound(c.Request.Method, c.Request.URL.Path))
}

func noMethod(c *gin.Context) {
	RespondWithError(c, errors.MethodNotAllowed(c.Request.Method, c.Request.URL.Path))
}
