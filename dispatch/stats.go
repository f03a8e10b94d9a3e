package dispatch

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InFlightStats is a point-in-time view of loop load. MaxInFlight is the
// concurrency limit, or the observed peak when unbounded. MaxInQueue is the
// deepest the queue has been.
type InFlightStats struct {
	InFlight    int64 `json:"in_flight"`
	InQueue     int64 `json:"in_queue"`
	MaxInFlight int64 `json:"max_in_flight"`
	MaxInQueue  int64 `json:"max_in_queue"`
}

type counters struct {
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	processed   atomic.Int64
	failed      atomic.Int64
	undelivered atomic.Int64
}

func (c *counters) begin() {
	n := c.inFlight.Add(1)
	for {
		peak := c.maxInFlight.Load()
		if n <= peak || c.maxInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (c *counters) end() {
	c.inFlight.Add(-1)
	c.processed.Add(1)
}

// registerGauges exposes stats as observable gauges on meter.
func registerGauges(meter metric.Meter, task string, stats func() InFlightStats) (metric.Registration, error) {
	inFlight, err := meter.Int64ObservableGauge("dispatch.in_flight",
		metric.WithDescription("Handler invocations currently running"),
	)
	if err != nil {
		return nil, err
	}
	inQueue, err := meter.Int64ObservableGauge("dispatch.in_queue",
		metric.WithDescription("Requests waiting for the consumer"),
	)
	if err != nil {
		return nil, err
	}
	attrs := metric.WithAttributes(attribute.String("task", task))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(inFlight, s.InFlight, attrs)
		o.ObserveInt64(inQueue, s.InQueue, attrs)
		return nil
	}, inFlight, inQueue)
}
