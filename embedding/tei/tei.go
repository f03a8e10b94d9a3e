// Package tei is an embedding backend for servers speaking the
// Text-Embeddings-Inference /embed protocol.
package tei

import (
	"context"
	"strconv"
	"time"

	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/httpclient"
	"github.com/kbukum/endpoints/provider"
)

const (
	// ProviderName is the registered name for the TEI backend.
	ProviderName = "tei"

	// HeaderPromptTokens carries the server's token count for a request.
	HeaderPromptTokens = "X-Prompt-Tokens"

	defaultURL     = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

var _ embedding.Handler = (*Provider)(nil)

// Config holds configuration for the TEI backend.
type Config struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Truncate asks the server to cut inputs longer than the model's
	// maximum sequence length instead of rejecting them.
	Truncate bool `yaml:"truncate" mapstructure:"truncate"`
	Retries  int  `yaml:"retries" mapstructure:"retries"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// HTTPConfig returns the adapter configuration for the server.
func (c Config) HTTPConfig() httpclient.Config {
	cfg := httpclient.Config{
		Name:           ProviderName,
		BaseURL:        c.URL,
		Timeout:        c.Timeout,
		Token:          c.Token,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	}
	if c.Retries > 0 {
		cfg.Retry = httpclient.DefaultRetryConfig()
		cfg.Retry.MaxAttempts = c.Retries + 1
	}
	return cfg
}

// Provider implements embedding.Handler against a TEI server.
type Provider struct {
	cfg     Config
	adapter *httpclient.Adapter
}

// NewProvider creates a TEI backend with its own adapter.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	a, err := httpclient.New(cfg.HTTPConfig())
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, adapter: a}, nil
}

// NewProviderWithAdapter creates a TEI backend on an existing adapter.
func NewProviderWithAdapter(cfg Config, a *httpclient.Adapter) *Provider {
	cfg.ApplyDefaults()
	return &Provider{cfg: cfg, adapter: a}
}

// Factory builds TEI backends from a generic config map with keys url,
// token, timeout, truncate and retries.
func Factory() provider.Factory[embedding.Handler] {
	return func(m map[string]any) (embedding.Handler, error) {
		var cfg Config
		if v, ok := m["url"].(string); ok {
			cfg.URL = v
		}
		if v, ok := m["token"].(string); ok {
			cfg.Token = v
		}
		if v, ok := m["truncate"].(bool); ok {
			cfg.Truncate = v
		}
		if v, ok := m["retries"].(int); ok {
			cfg.Retries = v
		}
		switch v := m["timeout"].(type) {
		case time.Duration:
			cfg.Timeout = v
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			cfg.Timeout = d
		}
		return NewProvider(cfg)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether requests may be sent, which is false while
// the adapter's circuit is open. It makes no network call.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.adapter.IsAvailable(ctx)
}

// Probe checks the server's /health endpoint.
func (p *Provider) Probe(ctx context.Context) bool {
	return httpclient.Probe(ctx, p.adapter, "/health")
}

type embedRequest struct {
	Inputs     any  `json:"inputs"`
	Normalize  bool `json:"normalize"`
	Truncate   bool `json:"truncate"`
	Dimensions int  `json:"dimensions,omitempty"`
}

// Execute embeds every input in one /embed call. The server always
// answers with a list, which is reshaped to the request's arity.
func (p *Provider) Execute(ctx context.Context, req embedding.Request) (embedding.Response, error) {
	inputs, err := wireInputs(req.Inputs.Items())
	if err != nil {
		return embedding.Response{}, err
	}
	body := embedRequest{
		Inputs:    inputs,
		Normalize:  req.Parameters.Normalize,
		Truncate:   p.cfg.Truncate,
		Dimensions: req.Parameters.Dimensions,
	}

	resp, err := httpclient.Post[[]embedding.Vector](ctx, p.adapter, "/embed", body)
	if err != nil {
		return embedding.Response{}, httpclient.ToAppError(ProviderName, err)
	}
	out, err := envelope.Rebatch(req.Inputs, resp.Data)
	if err != nil {
		return embedding.Response{}, errors.ExternalServiceError(ProviderName, err)
	}

	usage := embedding.EstimateUsage(req.Inputs)
	if n, err := strconv.ParseUint(resp.Header(HeaderPromptTokens), 10, 32); err == nil {
		usage = envelope.SameUsage(uint(n))
	}
	return envelope.NewResponse(out, &usage), nil
}

// wireInputs flattens inputs into the list TEI expects. A batch must be
// all text or all token ids.
func wireInputs(items []embedding.Input) (any, error) {
	if len(items) == 0 {
		return nil, errors.Validation("input must not be empty")
	}
	if items[0].IsTokens() {
		ids := make([][]uint32, len(items))
		for i, in := range items {
			if !in.IsTokens() {
				return nil, errors.Validation("input batch mixes text and token ids")
			}
			ids[i] = in.Tokens()
		}
		return ids, nil
	}
	texts := make([]string, len(items))
	for i, in := range items {
		if in.IsTokens() {
			return nil, errors.Validation("input batch mixes text and token ids")
		}
		texts[i] = in.Text()
	}
	return texts, nil
}
