package httpclient

import "net/http"

// HeaderRequestID carries the caller's request id to backends.
const HeaderRequestID = "X-Request-Id"

// Request describes an outbound call. Path is joined to the adapter's
// BaseURL unless it is absolute. Body may be a *MultipartBody, an
// io.Reader, []byte, a string, or any value encoded as JSON.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
}

// Response is a backend reply with its body fully read.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Header returns a response header by name.
func (r *Response) Header(name string) string {
	return r.Headers[http.CanonicalHeaderKey(name)]
}
