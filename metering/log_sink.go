package metering

import (
	"context"

	"github.com/kbukum/endpoints/logger"
)

// LogSink writes usage events to the log. It is the fallback when no
// broker is configured.
type LogSink struct {
	log *logger.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a LogSink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("metering")}
}

// Name returns the sink name.
func (s *LogSink) Name() string { return "log" }

// IsAvailable always reports true.
func (s *LogSink) IsAvailable(context.Context) bool { return true }

// Send logs ev at info level.
func (s *LogSink) Send(ctx context.Context, ev Event) error {
	s.log.WithContext(ctx).Info("usage", logger.Fields(
		logger.FieldTask, ev.Task,
		"model", ev.Model,
		"prompt_tokens", ev.PromptTokens,
		"total_tokens", ev.TotalTokens,
	))
	return nil
}
