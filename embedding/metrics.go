package embedding

import (
	"context"

	"github.com/kbukum/endpoints/observability"
	"github.com/kbukum/endpoints/provider"
)

// WithBatchMetrics records the input count of every request and tags the
// current span with it.
func WithBatchMetrics(task string, m *observability.Metrics) provider.Middleware[Request, Response] {
	return func(inner provider.RequestResponse[Request, Response]) provider.RequestResponse[Request, Response] {
		return &batchMetrics{inner: inner, task: task, metrics: m}
	}
}

type batchMetrics struct {
	inner   provider.RequestResponse[Request, Response]
	task    string
	metrics *observability.Metrics
}

func (b *batchMetrics) Name() string                         { return b.inner.Name() }
func (b *batchMetrics) IsAvailable(ctx context.Context) bool { return b.inner.IsAvailable(ctx) }

func (b *batchMetrics) Execute(ctx context.Context, req Request) (Response, error) {
	n := req.Inputs.Len()
	b.metrics.RecordBatch(ctx, b.task, n)
	observability.SetSpanAttribute(ctx, observability.AttrBatchSize, n)
	return b.inner.Execute(ctx, req)
}
