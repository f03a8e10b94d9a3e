package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/endpoints/logger"
)

type loaderOptions struct {
	configFile string
	envFile    string
	defaults   map[string]any
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*loaderOptions)

// WithConfigFile skips the search and reads path. A missing file is
// ignored.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile skips the search and loads path into the environment.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithDefaults seeds keys that apply when neither the file nor the
// environment sets them. Keys use viper's dotted form ("server.port").
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(o *loaderOptions) { o.defaults = defaults }
}

// LoadConfig fills cfg from defaults, then the YAML config file, then the
// environment including variables loaded from the .env file. Later
// sources win.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.configFile == "" {
		o.configFile = firstExisting(configCandidates(service))
	}
	if o.envFile == "" {
		o.envFile = firstExisting(envCandidates(service))
	}

	v := viper.New()
	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}
	if exists(o.configFile) {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to load config file", logger.Fields("file", o.configFile, logger.FieldError, err.Error()))
		}
	}
	if exists(o.envFile) {
		// godotenv never overrides variables already set.
		if err := godotenv.Load(o.envFile); err != nil {
			logger.Warn("failed to load env file", logger.Fields("file", o.envFile, logger.FieldError, err.Error()))
		}
	}
	bindEnv(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", service, err)
	}
	return nil
}

// configCandidates lists config.yml locations, most specific first. Tests
// run from package directories, hence the parent paths.
func configCandidates(service string) []string {
	var paths []string
	for _, up := range []string{"./", "../", "../../"} {
		paths = append(paths, up+"cmd/"+service+"/config.yml")
	}
	return append(paths, "./config/config.yml", "../config/config.yml", "./config.yml")
}

func envCandidates(service string) []string {
	var paths []string
	for _, name := range []string{".env." + service, ".env"} {
		for _, dir := range []string{"cmd/" + service, "config", "."} {
			for _, up := range []string{"./", "../", "../../"} {
				paths = append(paths, up+dir+"/"+name)
			}
		}
	}
	return paths
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if exists(p) {
			return p
		}
	}
	return ""
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// bindEnv sets every environment variable under each key it could name,
// since an underscore may separate either nesting levels or words.
func bindEnv(v *viper.Viper) {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		for _, k := range envKeyVariants(key) {
			v.Set(k, value)
		}
	}
}

// envKeyVariants maps SERVER_REQUEST_TIMEOUT to server_request_timeout,
// server.request_timeout, server.request.timeout.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	variants := []string{lower}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}
