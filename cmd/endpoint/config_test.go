package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/endpoints/config"
	"github.com/kbukum/endpoints/embedding/tei"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/transcription/whisper"
)

func validConfig() *EndpointConfig {
	return &EndpointConfig{
		ServiceConfig: config.ServiceConfig{Environment: "development"},
		Embeddings:    EmbeddingsConfig{Enabled: true},
	}
}

func TestEndpointConfig_Defaults(t *testing.T) {
	cfg := &EndpointConfig{
		ServiceConfig: config.ServiceConfig{Environment: "development"},
		Embeddings:    EmbeddingsConfig{Enabled: true},
		Transcription: TranscriptionConfig{Enabled: true},
	}
	cfg.ApplyDefaults()

	if cfg.Name != "inference-endpoint" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Server.RequestTimeout != server.DefaultRequestTimeout {
		t.Errorf("request timeout = %s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Embeddings.Backends) != 1 || cfg.Embeddings.Backends[0].URL == "" {
		t.Errorf("embeddings backends = %+v", cfg.Embeddings.Backends)
	}
	if len(cfg.Transcription.Backends) != 1 {
		t.Fatalf("transcription backends = %+v", cfg.Transcription.Backends)
	}
	if cfg.Transcription.Model != cfg.Transcription.Backends[0].Model || cfg.Transcription.Model == "" {
		t.Errorf("transcription model = %q", cfg.Transcription.Model)
	}
	if cfg.Embeddings.Selector != SelectPriority || cfg.Transcription.Selector != SelectPriority {
		t.Errorf("selectors = %q, %q", cfg.Embeddings.Selector, cfg.Transcription.Selector)
	}
	if cfg.Redis.Addr != "" || cfg.Kafka.Topic != "" {
		t.Error("disabled redis and kafka sections should stay empty")
	}
	if got := cfg.Tasks(); len(got) != 2 || got[0] != taskEmbeddings || got[1] != taskTranscription {
		t.Errorf("tasks = %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestEndpointConfig_DisabledTaskKeepsBackendsEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if len(cfg.Transcription.Backends) != 0 {
		t.Errorf("transcription backends = %+v", cfg.Transcription.Backends)
	}
	if got := cfg.Tasks(); len(got) != 1 || got[0] != taskEmbeddings {
		t.Errorf("tasks = %v", got)
	}
}

func TestEndpointConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*EndpointConfig)
		want   string
	}{
		{"valid", func(*EndpointConfig) {}, ""},
		{"no task", func(c *EndpointConfig) { c.Embeddings.Enabled = false }, "at least one"},
		{"bad environment", func(c *EndpointConfig) { c.Environment = "qa" }, "environment"},
		{"bad selector", func(c *EndpointConfig) { c.Embeddings.Selector = "random" }, "embeddings.selector"},
		{"negative concurrency", func(c *EndpointConfig) {
			c.Transcription.Enabled = true
			c.Transcription.MaxConcurrent = -1
		}, "max_concurrent"},
		{"bad timeout", func(c *EndpointConfig) { c.Server.RequestTimeout = -time.Second }, "request_timeout"},
		{"kafka without brokers", func(c *EndpointConfig) {
			c.Kafka.Enabled = true
			c.Kafka.Topic = "usage"
		}, "kafka"},
		{"auth without verifier", func(c *EndpointConfig) { c.Auth.Enabled = true }, "auth"},
		{"round robin", func(c *EndpointConfig) {
			c.Embeddings.Selector = SelectRoundRobin
			c.Embeddings.Backends = []tei.Config{{URL: "http://a"}, {URL: "http://b"}}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ApplyDefaults()
			tt.modify(cfg)
			err := cfg.Validate()
			switch {
			case tt.want == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.want != "" && err == nil:
				t.Errorf("expected error containing %q", tt.want)
			case tt.want != "" && !strings.Contains(err.Error(), tt.want):
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "30", 30 * time.Second, false},
		{"zero", "0", 0, true},
		{"not a number", "thirty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvRequestTimeout, tt.value)
			cfg := validConfig()
			err := applyEnvOverrides(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.Server.RequestTimeout != tt.want {
				t.Errorf("request timeout = %s, want %s", cfg.Server.RequestTimeout, tt.want)
			}
		})
	}
}

func TestApplyEnvOverrides_Unset(t *testing.T) {
	cfg := validConfig()
	cfg.Server.RequestTimeout = 5 * time.Second
	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("request timeout = %s", cfg.Server.RequestTimeout)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoint.yaml")
	yaml := `
name: embed-svc
environment: staging
server:
  port: 9090
transcription:
  enabled: true
  max_concurrent: 4
  backends:
    - url: http://whisper:9000
      model: small
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvRequestTimeout, "45")

	cfg, err := loadConfig(path, "")
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyDefaults()
	if cfg.Name != "embed-svc" || cfg.Environment != "staging" || cfg.Server.Port != 9090 {
		t.Errorf("service = %+v server = %+v", cfg.ServiceConfig, cfg.Server)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("request timeout = %s", cfg.Server.RequestTimeout)
	}
	want := whisper.Config{URL: "http://whisper:9000", Model: "small"}
	if len(cfg.Transcription.Backends) != 1 || cfg.Transcription.Backends[0].URL != want.URL {
		t.Fatalf("backends = %+v", cfg.Transcription.Backends)
	}
	if cfg.Transcription.Model != "small" || cfg.Transcription.MaxConcurrent != 4 {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
}

func TestLoadConfig_RejectsZeroTimeoutOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoint.yaml")
	if err := os.WriteFile(path, []byte("embeddings:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvRequestTimeout, "0")
	if _, err := loadConfig(path, ""); err == nil || !strings.Contains(err.Error(), EnvRequestTimeout) {
		t.Fatalf("err = %v, want the zero override rejected", err)
	}
}
