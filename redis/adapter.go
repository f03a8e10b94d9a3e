package redis

import (
	"context"

	"github.com/kbukum/endpoints/provider"
)

var _ provider.Provider = (*Client)(nil)

// Name returns the configured client name.
func (c *Client) Name() string { return c.cfg.Name }

// IsAvailable reports whether the client is open and the server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return !c.closed.Load() && c.rdb.Ping(ctx).Err() == nil
}
