package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TypedResponse is a Response whose JSON body was decoded into T.
type TypedResponse[T any] struct {
	StatusCode int
	Headers    map[string]string
	Data       T
}

// Header returns a response header by name.
func (r *TypedResponse[T]) Header(name string) string {
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// Post sends body to path and decodes the JSON reply into T. A
// *MultipartBody posts a form.
func Post[T any](ctx context.Context, a *Adapter, path string, body any) (*TypedResponse[T], error) {
	resp, err := a.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return nil, fmt.Errorf("httpclient: decode response: %w", err)
		}
	}
	return &TypedResponse[T]{StatusCode: resp.StatusCode, Headers: resp.Headers, Data: data}, nil
}

// Probe issues a single GET to path, without retry, and reports whether
// it answered 2xx.
func Probe(ctx context.Context, a *Adapter, path string) bool {
	resp, err := a.attempt(ctx, Request{Method: http.MethodGet, Path: path})
	return err == nil && resp.IsSuccess()
}
