package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures an Adapter.
type Config struct {
	// Name identifies the backend in logs, health and the startup summary.
	Name string `yaml:"name" mapstructure:"name"`
	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds one attempt. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Token is sent as a bearer token when set.
	Token string `yaml:"token" mapstructure:"token"`
	// TLS configures the transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`
	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRetryConfig retries only errors classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig opens after five consecutive backend
// failures. Rejected inputs do not count. Transitions are logged.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsBackendFailure
	cfg.OnStateChange = logTransition
	return &cfg
}

func logTransition(name string, from, to resilience.State) {
	fields := logger.Fields("backend", name, "from", from.String(), "to", to.String())
	if to == resilience.StateOpen {
		logger.Get("httpclient").Warn("backend circuit opened", fields)
		return
	}
	logger.Get("httpclient").Info("backend circuit state changed", fields)
}
