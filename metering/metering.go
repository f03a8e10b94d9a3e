// Package metering reports token usage of completed requests to an event
// sink without delaying the response.
package metering

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/provider"
)

// DefaultSendTimeout bounds one event delivery.
const DefaultSendTimeout = 5 * time.Second

// Event is the usage record of one completed request.
type Event struct {
	RequestID    string    `json:"request_id"`
	Task         string    `json:"task"`
	Model        string    `json:"model,omitempty"`
	PromptTokens uint      `json:"prompt_tokens"`
	TotalTokens  uint      `json:"total_tokens"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sink receives usage events.
type Sink = provider.Sink[Event]

// UsageFunc extracts the usage of a response, or nil when it has none.
type UsageFunc[O any] func(O) *envelope.Usage

// Option configures WithUsageReporting.
type Option func(*options)

type options struct {
	model   string
	timeout time.Duration
	log     *logger.Logger
	wg      *sync.WaitGroup
}

// WithModel tags events with the served model name.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithWaitGroup tracks in-flight sends so shutdown can wait for them.
func WithWaitGroup(wg *sync.WaitGroup) Option {
	return func(o *options) { o.wg = wg }
}

// WithUsageReporting emits one Event per successful call that reports
// usage. Events are sent on their own goroutine; a failed or unavailable
// sink is logged and never fails the request.
func WithUsageReporting[I, O any](sink Sink, task string, usage UsageFunc[O], opts ...Option) provider.Middleware[I, O] {
	o := &options{timeout: DefaultSendTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("metering")
	}
	return func(inner provider.RequestResponse[I, O]) provider.RequestResponse[I, O] {
		return &reporting[I, O]{inner: inner, sink: sink, task: task, usage: usage, opts: o}
	}
}

type reporting[I, O any] struct {
	inner provider.RequestResponse[I, O]
	sink  Sink
	task  string
	usage UsageFunc[O]
	opts  *options
}

func (r *reporting[I, O]) Name() string                         { return r.inner.Name() }
func (r *reporting[I, O]) IsAvailable(ctx context.Context) bool { return r.inner.IsAvailable(ctx) }

func (r *reporting[I, O]) Execute(ctx context.Context, in I) (O, error) {
	out, err := r.inner.Execute(ctx, in)
	if err != nil {
		return out, err
	}
	if u := r.usage(out); u != nil {
		r.report(ctx, r.event(ctx, *u))
	}
	return out, nil
}

func (r *reporting[I, O]) event(ctx context.Context, u envelope.Usage) Event {
	var requestID string
	if c, ok := dispatch.FromContext(ctx); ok {
		requestID = c.RequestID
	}
	return Event{
		RequestID:    requestID,
		Task:         r.task,
		Model:        r.opts.model,
		PromptTokens: u.PromptTokens,
		TotalTokens:  u.TotalTokens,
		Timestamp:    time.Now().UTC(),
	}
}

func (r *reporting[I, O]) report(ctx context.Context, ev Event) {
	// The event outlives the request, so it must not inherit its cancellation.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.timeout)
	if r.opts.wg != nil {
		r.opts.wg.Add(1)
	}
	go func() {
		defer cancel()
		if r.opts.wg != nil {
			defer r.opts.wg.Done()
		}
		log := r.opts.log.WithContext(sendCtx)
		if !r.sink.IsAvailable(sendCtx) {
			log.Warn("usage sink unavailable, event dropped", logger.Fields(logger.FieldTask, ev.Task))
			return
		}
		if err := r.sink.Send(sendCtx, ev); err != nil {
			log.Warn("usage event not delivered", logger.Fields(
				logger.FieldTask, ev.Task,
				logger.FieldError, err.Error(),
			))
		}
	}()
}
