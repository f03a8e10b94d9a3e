// Package router converts wire-level requests into typed dispatch requests
// and typed responses back into wire responses. One generic Router replaces
// a hand-written handler per task: each task supplies two conversion funcs.
package router

import (
	"context"
	"time"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/observability"
)

// Router routes one task's wire requests through a dispatch endpoint.
type Router[WReq, WResp, TReq, TResp any] struct {
	name     string
	endpoint dispatch.EndpointContext[TReq, TResp]
	toTyped  func(WReq) TReq
	toWire   func(WReq, TResp) (WResp, error)
	timeout  time.Duration
	metrics  *observability.Metrics
	log      *logger.Logger
}

// Option configures a Router.
type Option func(*options)

type options struct {
	timeout time.Duration
	metrics *observability.Metrics
	log     *logger.Logger
}

// WithTimeout bounds how long Route waits for the backend. The transport
// deadline applies as well; whichever is earlier wins.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMetrics records one operation per routed request.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the router logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a Router. toTyped must be total: validation happens before
// Route is called. toWire receives the original wire request so it can
// honour response-shaping fields.
func New[WReq, WResp, TReq, TResp any](
	name string,
	endpoint dispatch.EndpointContext[TReq, TResp],
	toTyped func(WReq) TReq,
	toWire func(WReq, TResp) (WResp, error),
	opts ...Option,
) *Router[WReq, WResp, TReq, TResp] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("router")
	}
	return &Router[WReq, WResp, TReq, TResp]{
		name:     name,
		endpoint: endpoint,
		toTyped:  toTyped,
		toWire:   toWire,
		timeout:  o.timeout,
		metrics:  o.metrics,
		log:      o.log.WithFields(logger.Fields(logger.FieldTask, name)),
	}
}

// Name returns the task name.
func (r *Router[WReq, WResp, TReq, TResp]) Name() string { return r.name }

// Available reports whether the backend consumer accepts work.
func (r *Router[WReq, WResp, TReq, TResp]) Available() bool { return r.endpoint.Available() }

// Route schedules exactly one typed request and waits for exactly one
// outcome. Failures are returned as *errors.AppError.
func (r *Router[WReq, WResp, TReq, TResp]) Route(ctx context.Context, c dispatch.Context, req WReq) (WResp, error) {
	var zero WResp
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.dispatch(ctx, c, req)
	if err != nil {
		appErr := MapError(r.name, err)
		r.record(ctx, string(appErr.Code), start)
		r.log.WithContext(ctx).Warn("request failed", logger.Fields(
			logger.FieldRequestID, c.RequestID,
			logger.FieldStatus, appErr.HTTPStatus,
			logger.FieldError, err.Error(),
		))
		return zero, appErr
	}

	wire, err := r.toWire(req, resp)
	if err != nil {
		r.record(ctx, string(errors.ErrCodeInternal), start)
		return zero, errors.Internal(err)
	}
	r.record(ctx, "ok", start)
	return wire, nil
}

func (r *Router[WReq, WResp, TReq, TResp]) dispatch(ctx context.Context, c dispatch.Context, req WReq) (TResp, error) {
	rx, err := r.endpoint.Schedule(c, r.toTyped(req))
	if err != nil {
		var zero TResp
		return zero, err
	}
	return rx.Await(ctx)
}

func (r *Router[WReq, WResp, TReq, TResp]) record(ctx context.Context, status string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordOperation(ctx, "router", r.name, status, time.Since(start))
	}
}
