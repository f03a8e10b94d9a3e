package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/resilience"
)

// ResilienceConfig selects the policies wrapped around a backend. Nil
// fields are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

// IsEmpty reports whether no policy is set.
func (c ResilienceConfig) IsEmpty() bool {
	return c == ResilienceConfig{}
}

// policies are the live primitives built from a ResilienceConfig. A call
// passes them outside in: rate limit, bulkhead, breaker, retry.
type policies struct {
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	breaker  *resilience.CircuitBreaker
	retry    *resilience.RetryConfig
}

func newPolicies(cfg ResilienceConfig) *policies {
	p := &policies{retry: cfg.Retry}
	if cfg.RateLimiter != nil {
		p.limiter = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		p.bulkhead = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	if cfg.CircuitBreaker != nil {
		p.breaker = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	return p
}

func (p *policies) open() bool {
	return p.breaker != nil && p.breaker.State() == resilience.StateOpen
}

// WithResilience wraps a backend with the policies in cfg. Rejections by a
// policy surface as AppErrors; backend errors pass through unchanged.
func WithResilience[I, O any](inner RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return inner
	}
	return &resilientRR[I, O]{inner: inner, p: newPolicies(cfg)}
}

// WithSinkResilience is WithResilience for a Sink.
func WithSinkResilience[I any](inner Sink[I], cfg ResilienceConfig) Sink[I] {
	if cfg.IsEmpty() {
		return inner
	}
	return &resilientSink[I]{inner: inner, p: newPolicies(cfg)}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	p     *policies
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	return !r.p.open() && r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return guarded(ctx, r.p, func() (O, error) { return r.inner.Execute(ctx, input) })
}

type resilientSink[I any] struct {
	inner Sink[I]
	p     *policies
}

func (r *resilientSink[I]) Name() string { return r.inner.Name() }

func (r *resilientSink[I]) IsAvailable(ctx context.Context) bool {
	return !r.p.open() && r.inner.IsAvailable(ctx)
}

func (r *resilientSink[I]) Send(ctx context.Context, input I) error {
	_, err := guarded(ctx, r.p, func() (struct{}, error) { return struct{}{}, r.inner.Send(ctx, input) })
	return err
}

func guarded[T any](ctx context.Context, p *policies, fn func() (T, error)) (T, error) {
	var zero T
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return zero, policyError(err)
		}
	}

	call := fn
	if p.retry != nil {
		retry, once := *p.retry, call
		call = func() (T, error) { return resilience.Retry(ctx, retry, once) }
	}
	if p.breaker != nil {
		once := call
		call = func() (T, error) {
			v, err := resilience.Guard(p.breaker, once)
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return v, policyError(err)
			}
			return v, err
		}
	}
	if p.bulkhead == nil {
		return call()
	}

	v, err := resilience.ExecuteWithResult(ctx, p.bulkhead, call)
	if err != nil {
		return v, policyError(err)
	}
	return v, nil
}

// policyError maps a rejection by one of the policies to the AppError
// clients see. Anything else is returned as is.
func policyError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("backend").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ServiceUnavailable("backend").
			WithCause(err).
			WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("backend call").WithCause(err)
	}
	return err
}
