package auth

import (
	"fmt"
	"time"
)

// Config holds authentication configuration. Sub-configs are pointers so
// unused schemes stay nil and skip validation.
type Config struct {
	// Enabled controls whether bearer auth is enforced.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// JWT configures HMAC bearer tokens (nil if not used).
	JWT *JWTConfig `yaml:"jwt" mapstructure:"jwt"`

	// APIKeys lists accepted static keys by bcrypt hash.
	APIKeys []APIKey `yaml:"api_keys" mapstructure:"api_keys"`

	// SkipPaths bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// JWTConfig configures JWTVerifier.
type JWTConfig struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Method   string        `yaml:"method" mapstructure:"method"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Audience string        `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Leeway   time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// ApplyDefaults sets defaults on JWTConfig.
func (c *JWTConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = "HS256"
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
}

// Validate checks JWTConfig.
func (c *JWTConfig) Validate() error {
	switch c.Method {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing method: %s (use HS256, HS384 or HS512)", c.Method)
	}
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if c.TTL < 0 || c.Leeway < 0 {
		return fmt.Errorf("ttl and leeway must be non-negative")
	}
	return nil
}

// ApplyDefaults sets defaults for non-nil sub-configurations.
func (c *Config) ApplyDefaults() {
	if c.JWT != nil {
		c.JWT.ApplyDefaults()
	}
	if len(c.SkipPaths) == 0 {
		c.SkipPaths = []string{"/health", "/info"}
	}
}

// Validate checks the configuration when auth is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.JWT == nil && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth: enabled but neither jwt nor api_keys is configured")
	}
	if c.JWT != nil {
		if err := c.JWT.Validate(); err != nil {
			return fmt.Errorf("auth.jwt: %w", err)
		}
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	line := ""
	if c.JWT != nil {
		line = fmt.Sprintf("JWT(%s)", c.JWT.Method)
	}
	if len(c.APIKeys) > 0 {
		if line != "" {
			line += " "
		}
		line += fmt.Sprintf("api_keys=%d", len(c.APIKeys))
	}
	return line
}

// NewVerifier builds the Verifier described by c. It returns nil when auth
// is disabled.
func NewVerifier(c Config) (Verifier, error) {
	if !c.Enabled {
		return nil, nil
	}
	var verifiers []Verifier
	if c.JWT != nil {
		v, err := NewJWTVerifier(*c.JWT)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	}
	if len(c.APIKeys) > 0 {
		v, err := NewAPIKeyVerifier(c.APIKeys)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	}
	if len(verifiers) == 1 {
		return verifiers[0], nil
	}
	return Any(verifiers...), nil
}
