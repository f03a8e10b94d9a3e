package kafka

import (
	"crypto/tls"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// security resolves the TLS and SASL settings shared by the writer
// transport and the health check dialer. Either may be nil.
func security(cfg *Config) (*tls.Config, sasl.Mechanism, error) {
	tc, err := cfg.TLS.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("kafka tls: %w", err)
	}
	if !cfg.EnableSASL {
		return tc, nil, nil
	}
	m, err := buildSASLMechanism(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka sasl: %w", err)
	}
	return tc, m, nil
}

// CreateTransport builds the transport used by the usage writer.
func CreateTransport(cfg *Config) (*kafka.Transport, error) {
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		ClientID:    cfg.Name,
		TLS:         tc,
		SASL:        m,
	}, nil
}

// CreateDialer builds a dialer with the writer's security settings for
// health checks.
func CreateDialer(cfg *Config) (*kafka.Dialer, error) {
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		ClientID:      cfg.Name,
		TLS:           tc,
		SASLMechanism: m,
	}, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	}
	return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.SASLMechanism)
}

var compressionCodecs = map[string]kafka.Compression{
	"none": 0,
	"gzip": kafka.Gzip,
	"lz4":  kafka.Lz4,
	"zstd": kafka.Zstd,
}

// ResolveCompression maps a codec name to its kafka-go value. Anything
// unrecognized, including "snappy", selects snappy.
func ResolveCompression(name string) kafka.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafka.Snappy
}
