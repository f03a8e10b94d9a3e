package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// initMeter installs a global meter provider that pushes over OTLP/HTTP
// every MetricInterval.
func initMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider. Instruments made
// before the provider is installed forward to it once it is.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments shared by the HTTP layer, the routers,
// the dispatch loops and the backend providers.
type Metrics struct {
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestActive     metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
	tokensTotal       metric.Int64Counter
	batchSize         metric.Int64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		errs []error
	)
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served"))
	keep(err)
	m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"))
	keep(err)
	m.requestActive, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests in progress"))
	keep(err)
	m.operationTotal, err = meter.Int64Counter("operation.total",
		metric.WithDescription("Routed and backend calls by outcome"))
	keep(err)
	m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Routed and backend call latency"), metric.WithUnit("s"))
	keep(err)
	m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by kind and component"))
	keep(err)
	m.tokensTotal, err = meter.Int64Counter("inference.tokens",
		metric.WithDescription("Tokens consumed by inference requests"), metric.WithUnit("{token}"))
	keep(err)
	m.batchSize, err = meter.Int64Histogram("inference.batch_size",
		metric.WithDescription("Inputs per inference request"))
	keep(err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("creating instruments: %w", err)
	}
	return &m, nil
}

// RecordRequestStart counts a request in progress.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd closes a request opened by RecordRequestStart.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	m.requestActive.Add(ctx, -1)
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatus, status),
	)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordOperation records one routed or backend call.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrOperationName, operation),
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
	m.operationDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordError counts an error of kind raised by component.
func (m *Metrics) RecordError(ctx context.Context, kind, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", kind),
		attribute.String("component", component),
	))
}

// RecordUsage adds prompt and total token counts for one request.
func (m *Metrics) RecordUsage(ctx context.Context, task, model string, promptTokens, totalTokens uint) {
	for kind, n := range map[string]uint{"prompt": promptTokens, "total": totalTokens} {
		m.tokensTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String(AttrTask, task),
			attribute.String(AttrModel, model),
			attribute.String("kind", kind),
		))
	}
}

// RecordBatch records how many inputs a request carried.
func (m *Metrics) RecordBatch(ctx context.Context, task string, size int) {
	m.batchSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String(AttrTask, task)))
}
