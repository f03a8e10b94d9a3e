package transcription

import "github.com/kbukum/endpoints/provider"

// NewRegistry creates a registry of transcription backend factories.
func NewRegistry() *provider.Registry[Handler] {
	return provider.NewRegistry[Handler]()
}

// ManagerOption configures the transcription backend manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	selector provider.Selector[Handler]
}

// WithSelector sets the backend selection strategy.
func WithSelector(s provider.Selector[Handler]) ManagerOption {
	return func(c *managerConfig) {
		c.selector = s
	}
}

// NewManager creates a backend manager over registry. Backends are tried
// round-robin unless a selector is given.
func NewManager(registry *provider.Registry[Handler], opts ...ManagerOption) *provider.Manager[Handler] {
	cfg := &managerConfig{
		selector: &provider.RoundRobinSelector[Handler]{},
	}
	for _, o := range opts {
		o(cfg)
	}
	return provider.NewManager(registry, cfg.selector)
}
