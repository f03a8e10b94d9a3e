package bootstrap

import (
	"github.com/kbukum/endpoints/config"
)

// Config is satisfied by any pointer to a struct embedding
// config.ServiceConfig that adds its own defaults and validation.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
