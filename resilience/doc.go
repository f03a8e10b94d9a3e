// Package resilience provides the fault-tolerance primitives used around
// inference backends and the HTTP front:
//
//   - CircuitBreaker: fails fast while a sidecar is down
//   - Retry: exponential backoff for transient backend errors
//   - Bulkhead: bounds concurrent handler invocations in a dispatch loop
//   - RateLimiter: token bucket per caller or per backend
//   - Guard: runs a call through a CircuitBreaker and keeps its result
//
// provider.WithResilience composes them around a handler:
//
//	h = provider.WithResilience(h, provider.ResilienceConfig{
//	    Retry:          &retryCfg,
//	    CircuitBreaker: &cbCfg,
//	})
package resilience
