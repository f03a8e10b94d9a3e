package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/logger"
)

// Component runs the cache client under the component registry.
type Component struct {
	client *Client
	cfg    Config
	log    *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent builds the client up front so caches can be wired before
// Start; Start is where the server must first answer.
func NewComponent(cfg Config, log *logger.Logger) (*Component, error) {
	cfg.ApplyDefaults()
	log = log.WithComponent("redis")
	client, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Component{client: client, cfg: cfg, log: log}, nil
}

// Client returns the managed client.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return c.cfg.Name }

func (c *Component) Start(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return err
	}
	c.log.Info("response cache connected", logger.Fields("addr", c.cfg.Addr, "ttl", c.cfg.TTL.String()))
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health reports degraded rather than unhealthy on a failed ping: the
// request path bypasses the cache when it is unreachable.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if err := c.client.Ping(ctx); err != nil {
		h.Status, h.Message = component.StatusDegraded, err.Error()
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "cache",
		Details: fmt.Sprintf("%s db=%d pool=%d ttl=%s", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize, c.cfg.TTL),
	}
}
