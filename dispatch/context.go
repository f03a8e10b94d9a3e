package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// Context correlates a dispatched request with its origin.
type Context struct {
	RequestID string `json:"request_id"`
}

// NewContext returns a Context for requestID, generating one when empty.
func NewContext(requestID string) Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return Context{RequestID: requestID}
}

type contextKey struct{}

// WithContext stores c in ctx.
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context stored in ctx.
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(contextKey{}).(Context)
	return c, ok
}

// FromContextOrNew returns the Context stored in ctx, or a fresh one when
// the request did not pass through the request id middleware.
func FromContextOrNew(ctx context.Context) Context {
	if c, ok := FromContext(ctx); ok {
		return c
	}
	return NewContext("")
}
