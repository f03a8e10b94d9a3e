package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/logger"
)

// Component ties a usage producer to the component lifecycle. The writer
// dials lazily, so Start only arms the component; Stop flushes and closes.
type Component struct {
	cfg Config
	log *logger.Logger

	mu       sync.Mutex
	producer io.Closer
	running  bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent manages p, which is closed on Stop.
func NewComponent(cfg Config, p io.Closer, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, producer: p, log: log.WithComponent("kafka")}
}

func (c *Component) Name() string { return c.cfg.Name }

func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.producer == nil {
		return errors.New("kafka: component has no producer")
	}
	if !c.running {
		c.running = true
		c.log.Info("usage publishing enabled", logger.Fields("brokers", c.cfg.Brokers, "topic", c.cfg.Topic))
	}
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	p, running := c.producer, c.running
	c.producer, c.running = nil, false
	c.mu.Unlock()

	if !running || p == nil {
		return nil
	}
	return p.Close()
}

// Health dials the first broker and asks for cluster metadata. Usage
// publishing never blocks a request, so broker trouble only degrades.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !running {
		h.Status, h.Message = component.StatusUnhealthy, "kafka not started"
		return h
	}
	if err := c.ping(ctx); err != nil {
		h.Status, h.Message = component.StatusDegraded, err.Error()
	}
	return h
}

func (c *Component) ping(ctx context.Context) error {
	dialer, err := CreateDialer(&c.cfg)
	if err != nil {
		return err
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("broker unreachable: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("broker metadata: %w", err)
	}
	return nil
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%v topic=%s", c.cfg.Brokers, c.cfg.Topic),
	}
}
