// Package whisper is a transcription backend that forwards audio to a
// faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"strconv"
	"time"

	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/httpclient"
	"github.com/kbukum/endpoints/provider"
	"github.com/kbukum/endpoints/transcription"
)

const (
	// ProviderName is the registered name for the Whisper backend.
	ProviderName = "whisper"

	defaultURL     = "http://localhost:8387"
	defaultModel   = "base"
	defaultTimeout = 120 * time.Second
)

var _ transcription.Handler = (*Provider)(nil)

// Config holds configuration for the Whisper backend.
type Config struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" mapstructure:"retries"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// HTTPConfig returns the adapter configuration for the sidecar.
func (c Config) HTTPConfig() httpclient.Config {
	cfg := httpclient.Config{
		Name:           ProviderName,
		BaseURL:        c.URL,
		Timeout:        c.Timeout,
		Token:          c.Token,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	}
	if c.Retries > 0 {
		cfg.Retry = httpclient.DefaultRetryConfig()
		cfg.Retry.MaxAttempts = c.Retries + 1
	}
	return cfg
}

// Provider implements transcription.Handler against the sidecar.
type Provider struct {
	cfg     Config
	adapter *httpclient.Adapter
}

// NewProvider creates a Whisper backend with its own adapter.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	a, err := httpclient.New(cfg.HTTPConfig())
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, adapter: a}, nil
}

// NewProviderWithAdapter creates a Whisper backend on an existing adapter,
// typically one owned by an httpclient.Component.
func NewProviderWithAdapter(cfg Config, a *httpclient.Adapter) *Provider {
	cfg.ApplyDefaults()
	return &Provider{cfg: cfg, adapter: a}
}

// Factory builds Whisper backends from a generic config map with keys
// url, model, token and timeout.
func Factory() provider.Factory[transcription.Handler] {
	return func(m map[string]any) (transcription.Handler, error) {
		var cfg Config
		if v, ok := m["url"].(string); ok {
			cfg.URL = v
		}
		if v, ok := m["model"].(string); ok {
			cfg.Model = v
		}
		if v, ok := m["token"].(string); ok {
			cfg.Token = v
		}
		switch v := m["timeout"].(type) {
		case time.Duration:
			cfg.Timeout = v
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			cfg.Timeout = d
		}
		return NewProvider(cfg)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether requests may be sent, which is false while
// the adapter's circuit is open. It makes no network call.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.adapter.IsAvailable(ctx)
}

// Probe checks the sidecar's /health endpoint.
func (p *Provider) Probe(ctx context.Context) bool {
	return httpclient.Probe(ctx, p.adapter, "/health")
}

// Execute uploads the audio and converts the sidecar reply.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (transcription.Response, error) {
	params := req.Parameters
	fields := map[string]string{
		"model":       p.cfg.Model,
		"language":    params.Language,
		"temperature": strconv.FormatFloat(float64(params.Temperature), 'f', -1, 32),
		"top_p":       strconv.FormatFloat(float64(params.TopP), 'f', -1, 32),
		"timestamps":  strconv.FormatBool(params.Timestamps),
	}
	if params.Prompt != "" {
		fields["prompt"] = params.Prompt
	}
	if params.TopK > 0 {
		fields["top_k"] = strconv.Itoa(params.TopK)
	}

	filename := req.Inputs.Filename
	if filename == "" {
		filename = "audio"
	}
	contentType := req.Inputs.ContentType
	if contentType == "unknown" {
		contentType = ""
	}
	body := &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "audio",
			FileName:    filename,
			ContentType: contentType,
			Data:        req.Inputs.Data,
		}},
	}

	resp, err := httpclient.Post[whisperResponse](ctx, p.adapter, "/transcribe", body)
	if err != nil {
		return transcription.Response{}, httpclient.ToAppError(ProviderName, err)
	}
	result, err := resp.Data.toResult(params)
	if err != nil {
		return transcription.Response{}, err
	}
	return envelope.NewResponse[transcription.Result, envelope.Usage](result, nil), nil
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration *float32         `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	ID               *uint16  `json:"id"`
	Seek             uint16   `json:"seek"`
	Start            float32  `json:"start"`
	End              float32  `json:"end"`
	Text             string   `json:"text"`
	Tokens           []uint32 `json:"tokens"`
	Temperature      *float32 `json:"temperature"`
	AvgLogprob       float32  `json:"avg_logprob"`
	CompressionRatio float32  `json:"compression_ratio"`
	NoSpeechProb     float32  `json:"no_speech_prob"`
}

// toResult fills fields older sidecars omit: the segment id defaults to
// its position and the temperature to the requested one.
func (r whisperResponse) toResult(params transcription.Params) (transcription.Result, error) {
	segments := make([]transcription.Segment, 0, len(r.Segments))
	for i, s := range r.Segments {
		id := uint16(i)
		if s.ID != nil {
			id = *s.ID
		}
		temperature := params.Temperature
		if s.Temperature != nil {
			temperature = *s.Temperature
		}
		seg, err := transcription.NewSegment().
			ID(id).
			Seek(s.Seek).
			Start(s.Start).
			End(s.End).
			Text(s.Text).
			Tokens(s.Tokens).
			Temperature(temperature).
			AvgLogprob(s.AvgLogprob).
			CompressionRatio(s.CompressionRatio).
			NoSpeechProb(s.NoSpeechProb).
			Build()
		if err != nil {
			return transcription.Result{}, err
		}
		segments = append(segments, seg)
	}

	language := r.Language
	if language == "" {
		language = params.Language
	}
	var duration float32
	switch {
	case r.Duration != nil:
		duration = *r.Duration
	case len(segments) > 0:
		duration = segments[len(segments)-1].End
	}

	return transcription.Result{
		Text:     r.Text,
		Language: language,
		Duration: duration,
		Segments: segments,
	}, nil
}
