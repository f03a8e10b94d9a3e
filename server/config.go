package server

import (
	"fmt"
	"time"

	"github.com/kbukum/endpoints/server/middleware"
	"github.com/kbukum/endpoints/util"
)

// DefaultRequestTimeout bounds how long a request waits for the backend.
const DefaultRequestTimeout = 120 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	Host           string                     `yaml:"host" mapstructure:"host"`
	Port           int                        `yaml:"port" mapstructure:"port"`
	ReadTimeout    int                        `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout   int                        `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout    int                        `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	// RequestTimeout of zero selects DefaultRequestTimeout.
	RequestTimeout time.Duration              `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxBodySize    string                     `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "25MB"
	CORS           middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit      middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60
	}
	if c.WriteTimeout == 0 {
		// Leave room to write the error after the request deadline fires.
		c.WriteTimeout = int(c.RequestTimeout/time.Second) + 10
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "25MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "HEAD", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if len(c.CORS.ExposedHeaders) == 0 {
		c.CORS.ExposedHeaders = []string{middleware.HeaderRequestID}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond == 0 {
			c.RateLimit.RequestsPerSecond = 10
		}
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 20
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive (got: %s)", c.RequestTimeout)
	}
	if c.WriteTimeout > 0 && time.Duration(c.WriteTimeout)*time.Second < c.RequestTimeout {
		return fmt.Errorf("server.write_timeout (%ds) must not be shorter than server.request_timeout (%s)",
			c.WriteTimeout, c.RequestTimeout)
	}
	if _, err := util.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be non-negative")
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
