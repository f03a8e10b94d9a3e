package producer

import (
	"context"

	"github.com/kbukum/endpoints/metering"
)

// UsageSink publishes metering events to a topic, keyed by request id.
type UsageSink struct {
	producer *Producer
	topic    string
}

var _ metering.Sink = (*UsageSink)(nil)

// NewUsageSink returns a sink writing to topic.
func NewUsageSink(p *Producer, topic string) *UsageSink {
	return &UsageSink{producer: p, topic: topic}
}

// Name returns "kafka".
func (s *UsageSink) Name() string { return "kafka" }

// IsAvailable reports whether the producer is still open.
func (s *UsageSink) IsAvailable(context.Context) bool {
	return !s.producer.Closed()
}

// Send publishes one event.
func (s *UsageSink) Send(ctx context.Context, ev metering.Event) error {
	return s.producer.SendJSON(ctx, s.topic, ev.RequestID, ev)
}
