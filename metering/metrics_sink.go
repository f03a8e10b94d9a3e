package metering

import (
	"context"
	"errors"

	"github.com/kbukum/endpoints/observability"
)

// MetricsSink adds usage to the token counters of an observability.Metrics.
type MetricsSink struct {
	metrics *observability.Metrics
}

var _ Sink = (*MetricsSink)(nil)

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink(m *observability.Metrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

// Name returns the sink name.
func (s *MetricsSink) Name() string { return "metrics" }

// IsAvailable always reports true.
func (s *MetricsSink) IsAvailable(context.Context) bool { return true }

// Send records the token counts of ev.
func (s *MetricsSink) Send(ctx context.Context, ev Event) error {
	s.metrics.RecordUsage(ctx, ev.Task, ev.Model, ev.PromptTokens, ev.TotalTokens)
	return nil
}

// Tee delivers each event to every available sink in order. It is
// available while any sink is, and returns the joined send errors.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Name() string { return "tee" }

func (t tee) IsAvailable(ctx context.Context) bool {
	for _, s := range t {
		if s.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

func (t tee) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range t {
		if !s.IsAvailable(ctx) {
			continue
		}
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
