package router

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/errors"
)

// MapError converts a dispatch outcome into the error returned to clients.
func MapError(task string, err error) *errors.AppError {
	var he *dispatch.HandlerError
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, dispatch.ErrIPCFailed):
		return errors.ServiceUnavailable(task + " backend").WithCause(err)
	case stderrors.Is(err, dispatch.ErrNoResponse):
		return errors.NoResponse().WithCause(err)
	case stderrors.As(err, &he):
		if appErr, ok := errors.AsAppError(he.Cause); ok {
			if appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500 {
				return appErr
			}
			return errors.HandlerFailed(appErr.Message, he.Cause)
		}
		return errors.HandlerFailed(he.Error(), he.Cause)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(task).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.ErrCodeTimeout, "The request was canceled before a response was produced.", http.StatusGatewayTimeout).
			WithDetail("operation", task).WithCause(err)
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.Internal(err)
}
