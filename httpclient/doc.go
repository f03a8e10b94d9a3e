// Package httpclient is the outbound HTTP layer used by remote inference
// backends (TEI, Whisper sidecars). An Adapter applies auth, TLS, retry,
// circuit breaking and rate limiting, propagates X-Request-Id from the
// context, and classifies failures into *Error values that ToAppError
// turns into client-facing errors.
//
//	a, err := httpclient.New(httpclient.Config{
//	    Name:           "tei",
//	    BaseURL:        "http://localhost:8080",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("tei"),
//	})
//	resp, err := httpclient.Post[[][]float32](ctx, a, "/embed", body)
package httpclient
