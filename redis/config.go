package redis

import (
	"fmt"
	"time"
)

// DefaultCacheTTL is how long cached backend responses live.
const DefaultCacheTTL = time.Hour

// Config holds Redis connection and response cache configuration.
type Config struct {
	// Enabled turns the response cache on.
	Enabled bool `mapstructure:"enabled"`

	// Name identifies the client in logs and health output.
	Name string `mapstructure:"name"`

	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// PoolSize is the maximum number of socket connections.
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`

	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	ConnMaxIdleTime time.Duration `mapstructure:"idle_timeout"`
	// ConnMaxLifetime of 0 means no limit.
	ConnMaxLifetime time.Duration `mapstructure:"max_conn_age"`

	// KeyPrefix namespaces every cache key.
	KeyPrefix string `mapstructure:"key_prefix"`
	// TTL is the lifetime of a cached response.
	TTL time.Duration `mapstructure:"ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "redis"
	}
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinRetryBackoff <= 0 {
		c.MinRetryBackoff = 8 * time.Millisecond
	}
	if c.MaxRetryBackoff <= 0 {
		c.MaxRetryBackoff = 512 * time.Millisecond
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "endpoints"
	}
	if c.TTL <= 0 {
		c.TTL = DefaultCacheTTL
	}
}

// Validate checks required fields. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	if c.DB < 0 {
		return fmt.Errorf("db must be >= 0")
	}
	if c.MinRetryBackoff > c.MaxRetryBackoff {
		return fmt.Errorf("min_retry_backoff %s exceeds max_retry_backoff %s", c.MinRetryBackoff, c.MaxRetryBackoff)
	}
	return nil
}
