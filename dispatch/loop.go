package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/observability"
	"github.com/kbukum/endpoints/provider"
	"github.com/kbukum/endpoints/resilience"
)

// Loop consumes a queue and runs each item through a handler.
type Loop[I, O any] struct {
	name    string
	queue   *Channel[Item[I, O]]
	handler provider.RequestResponse[I, O]
	cfg     Config
	log     *logger.Logger
	meter   metric.Meter

	bulkhead *resilience.Bulkhead
	counters counters
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	abortOnce sync.Once
	abortErr  error
	mu        sync.RWMutex
	running   bool
	done      chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*loopOptions)

type loopOptions struct {
	log   *logger.Logger
	meter metric.Meter
}

// WithLogger sets the loop logger.
func WithLogger(l *logger.Logger) LoopOption {
	return func(o *loopOptions) { o.log = l }
}

// WithMeter publishes in-flight and queue gauges on m.
func WithMeter(m metric.Meter) LoopOption {
	return func(o *loopOptions) { o.meter = m }
}

// NewLoop binds a loop to queue. A queue accepts exactly one loop.
func NewLoop[I, O any](name string, queue *Channel[Item[I, O]], handler provider.RequestResponse[I, O], cfg Config, opts ...LoopOption) (*Loop[I, O], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := queue.bind(); err != nil {
		return nil, err
	}

	o := &loopOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("dispatch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop[I, O]{
		name:    name,
		queue:   queue,
		handler: handler,
		cfg:     cfg,
		log:     o.log.WithFields(logger.Fields(logger.FieldTask, name)),
		meter:   o.meter,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if cfg.Mode == ModeConcurrent && cfg.MaxConcurrency > 0 {
		l.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: cfg.MaxConcurrency,
		})
	}
	return l, nil
}

// Name returns the task name served by the loop.
func (l *Loop[I, O]) Name() string { return l.name }

// Endpoint returns a producer handle for the loop's queue.
func (l *Loop[I, O]) Endpoint() EndpointContext[I, O] {
	return NewEndpointContext(l.queue)
}

// Run consumes until the queue is closed and drained. It returns nil on a
// normal close and an ErrLoopAborted error when a handler panicked.
func (l *Loop[I, O]) Run() error {
	if err := l.claim(); err != nil {
		return err
	}
	return l.run()
}

func (l *Loop[I, O]) claim() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("dispatch: loop %s already running", l.name)
	}
	l.running = true
	return nil
}

func (l *Loop[I, O]) run() error {
	defer close(l.done)

	if l.meter != nil {
		reg, err := registerGauges(l.meter, l.name, l.Stats)
		if err != nil {
			l.log.Warn("dispatch gauges unavailable", logger.Fields(logger.FieldError, err.Error()))
		} else {
			defer func() { _ = reg.Unregister() }()
		}
	}

	l.log.Info("dispatch loop started", logger.Fields(
		"mode", string(l.cfg.Mode),
		"max_concurrency", l.cfg.MaxConcurrency,
	))

	for {
		it, ok := l.queue.Recv()
		if !ok {
			break
		}
		if l.cfg.Mode == ModeSerialized {
			if err := l.process(it); err != nil {
				l.abort(err)
				break
			}
			continue
		}
		if !l.spawn(it) {
			break
		}
	}

	l.inflight.Wait()
	l.cancel()

	if l.abortErr != nil {
		return l.abortErr
	}
	l.log.Info("dispatch loop stopped", logger.Fields("processed", l.counters.processed.Load()))
	return nil
}

func (l *Loop[I, O]) spawn(it Item[I, O]) bool {
	if l.bulkhead != nil {
		if err := l.bulkhead.Wait(l.ctx); err != nil {
			it.sink.Close()
			return false
		}
	}
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		if l.bulkhead != nil {
			defer l.bulkhead.Release()
		}
		if err := l.process(it); err != nil {
			l.abort(err)
		}
	}()
	return true
}

// process runs one item. The returned error is fatal for the loop.
func (l *Loop[I, O]) process(it Item[I, O]) (fatal error) {
	ctx := WithContext(l.ctx, it.Correlation)
	ctx = logger.ContextWithRequestID(ctx, it.Correlation.RequestID)
	ctx, span := observability.StartSpan(ctx, observability.SpanDispatch+"."+l.name)
	span.SetAttributes(
		attribute.String(observability.AttrRequestID, it.Correlation.RequestID),
		attribute.String(observability.AttrTask, l.name),
	)
	log := l.log.WithContext(ctx)

	l.counters.begin()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			it.sink.Close()
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			span.RecordError(pe)
			span.SetStatus(codes.Error, "panic")
			log.Error("handler panicked", logger.Fields(logger.FieldError, fmt.Sprint(r)))
			fatal = pe
		}
		l.counters.end()
		span.End()
	}()

	hctx := ctx
	if l.cfg.CancelOnAbandon {
		var cancel context.CancelFunc
		hctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-it.sink.Abandoned():
				cancel()
			case <-hctx.Done():
			}
		}()
	}

	out, err := l.handler.Execute(hctx, it.Request)
	if err != nil {
		l.counters.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields := logger.DurationFields("invoke", time.Since(start))
		fields[logger.FieldError] = err.Error()
		log.Error("handler failed", fields)
		err = &HandlerError{Cause: err}
	} else {
		log.Debug("handler completed", logger.DurationFields("invoke", time.Since(start)))
	}

	if derr := it.sink.Deliver(out, err); derr != nil {
		l.counters.undelivered.Add(1)
		log.Warn("response not delivered", logger.Fields(logger.FieldError, derr.Error()))
	}
	return nil
}

func (l *Loop[I, O]) abort(cause error) {
	l.abortOnce.Do(func() {
		l.abortErr = fmt.Errorf("%w: %s: %w", ErrLoopAborted, l.name, cause)
		l.log.Error("dispatch loop aborted", logger.Fields(logger.FieldError, cause.Error()))
		l.queue.Disconnect()
		l.cancel()
	})
}

// Aborted returns the fatal error that stopped the loop, if any.
func (l *Loop[I, O]) Aborted() error {
	select {
	case <-l.done:
		return l.abortErr
	default:
	}
	return nil
}

// Stats returns current load figures.
func (l *Loop[I, O]) Stats() InFlightStats {
	maxConc := int64(l.cfg.MaxConcurrency)
	if l.cfg.Mode == ModeSerialized {
		maxConc = 1
	}
	peak := l.counters.maxInFlight.Load()
	if maxConc > 0 {
		peak = maxConc
	}
	return InFlightStats{
		InFlight:    l.counters.inFlight.Load(),
		InQueue:     int64(l.queue.Len()),
		MaxInFlight: peak,
		MaxInQueue:  int64(l.queue.MaxLen()),
	}
}
