package main

import (
	"fmt"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/config"
	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding/tei"
	"github.com/kbukum/endpoints/kafka"
	"github.com/kbukum/endpoints/observability"
	"github.com/kbukum/endpoints/redis"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/transcription/whisper"
)

// EnvRequestTimeout overrides server.request_timeout, in whole seconds.
const EnvRequestTimeout = "HFENDPOINTS_REQUEST_TIMEOUT_SEC"

// Backend selection policies for tasks served by several replicas.
const (
	SelectPriority   = "priority"
	SelectRoundRobin = "round_robin"
)

// EndpointConfig is the configuration of the endpoint binary.
type EndpointConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Dispatch      dispatch.Config      `yaml:"dispatch" mapstructure:"dispatch"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`

	Embeddings    EmbeddingsConfig    `yaml:"embeddings" mapstructure:"embeddings"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
}

// EmbeddingsConfig configures the embeddings task.
type EmbeddingsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Model names the served model in usage events and cache keys.
	Model    string       `yaml:"model" mapstructure:"model"`
	Selector string       `yaml:"selector" mapstructure:"selector"`
	Backends []tei.Config `yaml:"backends" mapstructure:"backends"`
}

// TranscriptionConfig configures the transcription task.
type TranscriptionConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Model    string `yaml:"model" mapstructure:"model"`
	Selector string `yaml:"selector" mapstructure:"selector"`
	// MaxConcurrent bounds transcriptions running on the backends at once.
	// Zero means unbounded.
	MaxConcurrent int              `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Backends      []whisper.Config `yaml:"backends" mapstructure:"backends"`
}

// ApplyDefaults fills zero values of every section.
func (c *EndpointConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "inference-endpoint"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Dispatch.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Redis.Enabled {
		c.Redis.ApplyDefaults()
	}
	if c.Kafka.Enabled {
		c.Kafka.ApplyDefaults()
	}

	if c.Embeddings.Selector == "" {
		c.Embeddings.Selector = SelectPriority
	}
	if c.Embeddings.Enabled && len(c.Embeddings.Backends) == 0 {
		c.Embeddings.Backends = []tei.Config{{}}
	}
	for i := range c.Embeddings.Backends {
		c.Embeddings.Backends[i].ApplyDefaults()
	}

	if c.Transcription.Selector == "" {
		c.Transcription.Selector = SelectPriority
	}
	if c.Transcription.Enabled && len(c.Transcription.Backends) == 0 {
		c.Transcription.Backends = []whisper.Config{{}}
	}
	for i := range c.Transcription.Backends {
		c.Transcription.Backends[i].ApplyDefaults()
	}
	if c.Transcription.Model == "" && len(c.Transcription.Backends) > 0 {
		c.Transcription.Model = c.Transcription.Backends[0].Model
	}
}

// Validate checks every section.
func (c *EndpointConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if !c.Embeddings.Enabled && !c.Transcription.Enabled {
		return fmt.Errorf("at least one of embeddings.enabled or transcription.enabled must be set")
	}
	if err := validateSelector("embeddings", c.Embeddings.Selector); err != nil {
		return err
	}
	if err := validateSelector("transcription", c.Transcription.Selector); err != nil {
		return err
	}
	if c.Transcription.MaxConcurrent < 0 {
		return fmt.Errorf("transcription.max_concurrent must be >= 0 (got: %d)", c.Transcription.MaxConcurrent)
	}
	return nil
}

func validateSelector(task, s string) error {
	switch s {
	case SelectPriority, SelectRoundRobin:
		return nil
	}
	return fmt.Errorf("%s.selector must be %q or %q (got: %s)", task, SelectPriority, SelectRoundRobin, s)
}

// Tasks lists the enabled task names.
func (c *EndpointConfig) Tasks() []string {
	var tasks []string
	if c.Embeddings.Enabled {
		tasks = append(tasks, taskEmbeddings)
	}
	if c.Transcription.Enabled {
		tasks = append(tasks, taskTranscription)
	}
	return tasks
}

// loadConfig reads config files and the environment, then applies the
// request timeout override.
func loadConfig(configFile, envFile string) (*EndpointConfig, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := &EndpointConfig{}
	if err := config.LoadConfig("endpoint", cfg, opts...); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *EndpointConfig) error {
	d, ok, err := config.SecondsFromEnv(EnvRequestTimeout)
	if err != nil {
		return err
	}
	if ok {
		cfg.Server.RequestTimeout = d
	}
	return nil
}
