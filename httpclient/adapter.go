package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/resilience"
)

// Adapter is the HTTP client behind a remote inference backend. Every call
// carries the bearer token and the caller's request id, and runs under the
// configured rate limit, circuit breaker and retry policy.
type Adapter struct {
	client  *http.Client
	config  Config
	breaker *resilience.CircuitBreaker
	limiter *resilience.RateLimiter
}

// New builds an Adapter for cfg.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport, err := newTransport(cfg.TLS)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config: cfg,
	}
	if cb := cfg.CircuitBreaker; cb != nil {
		a.breaker = resilience.NewCircuitBreaker(*cb)
	}
	if rl := cfg.RateLimiter; rl != nil {
		a.limiter = resilience.NewRateLimiter(*rl)
	}
	return a, nil
}

func newTransport(tc *TLSConfig) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if tc == nil {
		return t, nil
	}
	tlsCfg, err := tc.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}
	return t, nil
}

// Do sends req, retrying per the configured policy. A non-2xx reply is
// returned together with its classified *Error.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if a.config.Retry == nil {
		return a.attempt(ctx, req)
	}
	return resilience.Retry(ctx, *a.config.Retry, func() (*Response, error) {
		return a.attempt(ctx, req)
	})
}

// attempt is a single try: rate limit, then the breaker around the call.
func (a *Adapter) attempt(ctx context.Context, req Request) (*Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if a.breaker == nil {
		return a.send(ctx, req)
	}
	return resilience.Guard(a.breaker, func() (*Response, error) {
		return a.send(ctx, req)
	})
}

func (a *Adapter) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := a.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	resp := &Response{StatusCode: httpResp.StatusCode, Headers: firstValues(httpResp.Header), Body: body}
	if classified := ClassifyStatusCode(resp.StatusCode, body); classified != nil {
		return resp, classified
	}
	return resp, nil
}

func (a *Adapter) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError("encode body: " + err.Error())
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.resolve(req.Path), body)
	if err != nil {
		return nil, NewValidationError("create request: " + err.Error())
	}

	// Later sources override earlier ones; the token always wins.
	h := httpReq.Header
	for k, v := range a.config.Headers {
		h.Set(k, v)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		h.Set(HeaderRequestID, id)
	}
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	if body != nil && contentType != "" && h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentType)
	}
	if a.config.Token != "" {
		h.Set("Authorization", "Bearer "+a.config.Token)
	}
	return httpReq, nil
}

func (a *Adapter) resolve(path string) string {
	if a.config.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// IsAvailable is false while the circuit is open.
func (a *Adapter) IsAvailable(context.Context) bool {
	return a.breaker == nil || a.breaker.State() != resilience.StateOpen
}

// Close drops idle keep-alive connections.
func (a *Adapter) Close(context.Context) error {
	a.client.CloseIdleConnections()
	return nil
}
