// Package producer writes usage events to Kafka with a kafka-go Writer
// and exposes them as a metering sink.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/endpoints/kafka"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/resilience"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("kafka producer is closed")

var jsonHeaders = []kafkago.Header{{Key: "content-type", Value: []byte("application/json")}}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer publishes messages, retrying the failures a broker recovers from.
type Producer struct {
	writer messageWriter
	retry  resilience.RetryConfig
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewProducer builds a producer for cfg. No broker is contacted until the
// first write, so a cluster outage does not block startup.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.New("kafka: usage publishing is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	log = log.WithComponent("kafka.producer")
	w, err := newWriter(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Debug("kafka writer configured", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
		"batch_size", cfg.BatchSize,
	))
	return newProducer(cfg, w, log), nil
}

func newWriter(cfg kafka.Config, log *logger.Logger) (*kafkago.Writer, error) {
	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.ResolveCompression(cfg.Compression),
		// The producer owns retries.
		MaxAttempts: 1,
		ErrorLogger: kafkago.LoggerFunc(func(format string, args ...any) {
			log.Error(fmt.Sprintf(format, args...))
		}),
	}, nil
}

func newProducer(cfg kafka.Config, w messageWriter, log *logger.Logger) *Producer {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retries
	retry.RetryIf = kafka.IsRetryableError
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("kafka write failed, retrying", logger.Fields(
			"attempt", attempt,
			"backoff", backoff.String(),
			logger.FieldError, err.Error(),
		))
	}
	return &Producer{writer: w, retry: retry, log: log}
}

// WriteMessages sends msgs, retrying connection and transient errors.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// SendJSON writes value as a JSON message keyed by key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kafka encode: %w", err)
	}
	return p.WriteMessages(ctx, kafkago.Message{Topic: topic, Key: []byte(key), Value: data, Headers: jsonHeaders})
}

// Metrics returns writer statistics accumulated since the previous call.
func (p *Producer) Metrics() kafka.WriterMetrics {
	return kafka.CollectWriterMetrics(p.writer.Stats())
}

// Closed reports whether Close has run.
func (p *Producer) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close flushes buffered messages, closes the writer and logs what was
// written since the last Metrics call.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.writer.Close()
	m := p.Metrics()
	p.log.Info("kafka producer closed", logger.Fields(
		"writes", m.Writes,
		"messages", m.Messages,
		"errors", m.Errors,
	))
	return err
}
