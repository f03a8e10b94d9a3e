package dispatch

import "fmt"

// Mode selects how the loop invokes the handler.
type Mode string

const (
	// ModeSerialized invokes the handler for one item at a time.
	ModeSerialized Mode = "serialized"
	// ModeConcurrent invokes the handler for each item on its own goroutine.
	ModeConcurrent Mode = "concurrent"
)

// Config configures a dispatch loop.
type Config struct {
	// Mode is serialized or concurrent. Default serialized.
	Mode Mode `yaml:"mode" mapstructure:"mode"`
	// MaxConcurrency bounds in-flight handler calls in concurrent mode.
	// Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// CancelOnAbandon cancels the handler context when the caller stops
	// waiting. When false the handler runs to completion and its result
	// is discarded.
	CancelOnAbandon bool `yaml:"cancel_on_abandon" mapstructure:"cancel_on_abandon"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeSerialized
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSerialized, ModeConcurrent:
	default:
		return fmt.Errorf("dispatch.mode must be %q or %q (got: %s)", ModeSerialized, ModeConcurrent, c.Mode)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("dispatch.max_concurrency must be >= 0 (got: %d)", c.MaxConcurrency)
	}
	return nil
}
