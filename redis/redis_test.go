package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/provider"
)

func newClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(Config{Enabled: true, Addr: mr.Addr()}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type transcript struct {
	Text     string   `json:"text"`
	Segments []string `json:"segments,omitempty"`
}

func TestResponseCache_LoadSave(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prefix  string
		ttl     time.Duration
		wantKey string
	}{
		{"prefixed", "endpoints", time.Minute, "endpoints:k"},
		{"bare key", "", 0, "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mr := newClient(t)
			cache := NewResponseCache[transcript](client, tt.prefix)

			if got, err := cache.Load(ctx, "k"); got != nil || err != nil {
				t.Fatalf("Load() before Save = %v, %v; want miss", got, err)
			}
			if err := cache.Save(ctx, "k", &transcript{Text: "hello", Segments: []string{"he", "llo"}}, tt.ttl); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if !mr.Exists(tt.wantKey) {
				t.Fatalf("keys = %v, want %q", mr.Keys(), tt.wantKey)
			}
			if got := mr.TTL(tt.wantKey); got != tt.ttl {
				t.Errorf("TTL = %v, want %v", got, tt.ttl)
			}

			got, err := cache.Load(ctx, "k")
			if err != nil || got == nil {
				t.Fatalf("Load() = %v, %v", got, err)
			}
			if got.Text != "hello" || len(got.Segments) != 2 {
				t.Errorf("Load() = %+v", got)
			}
		})
	}
}

func TestResponseCache_Expiry(t *testing.T) {
	client, mr := newClient(t)
	cache := NewResponseCache[transcript](client, "c")
	ctx := context.Background()

	if err := cache.Save(ctx, "k", &transcript{Text: "x"}, time.Second); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)
	if got, err := cache.Load(ctx, "k"); got != nil || err != nil {
		t.Errorf("Load() after expiry = %v, %v", got, err)
	}
}

func TestResponseCache_Errors(t *testing.T) {
	client, mr := newClient(t)
	cache := NewResponseCache[transcript](client, "c")
	ctx := context.Background()

	if err := mr.Set("c:corrupt", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(ctx, "corrupt"); err == nil {
		t.Error("Load() of corrupt entry: expected error")
	}

	mr.Close()
	if _, err := cache.Load(ctx, "k"); err == nil {
		t.Error("Load() with server down: expected error")
	}
	if err := cache.Save(ctx, "k", &transcript{}, 0); err == nil {
		t.Error("Save() with server down: expected error")
	}
}

func TestResponseCache_EmbeddingResponses(t *testing.T) {
	client, _ := newClient(t)
	cache := NewResponseCache[embedding.Response](client, "emb")
	ctx := context.Background()

	tests := []struct {
		name string
		resp embedding.Response
	}{
		{"single with usage", envelope.NewResponse(envelope.Single(embedding.Vector{0.5, 0.25}), &envelope.Usage{PromptTokens: 2, TotalTokens: 2})},
		{"batch", envelope.NewResponse[envelope.MaybeBatched[embedding.Vector], envelope.Usage](
			envelope.Batched(embedding.Vector{1}, embedding.Vector{0, 1}), nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Save(ctx, tt.name, &tt.resp, time.Minute); err != nil {
				t.Fatal(err)
			}
			got, err := cache.Load(ctx, tt.name)
			if err != nil || got == nil {
				t.Fatalf("Load() = %v, %v", got, err)
			}
			if got.Output.IsBatched() != tt.resp.Output.IsBatched() || got.Output.Len() != tt.resp.Output.Len() {
				t.Errorf("output = %+v, want %+v", got.Output, tt.resp.Output)
			}
			if (got.Usage == nil) != (tt.resp.Usage == nil) {
				t.Errorf("usage = %v, want %v", got.Usage, tt.resp.Usage)
			}
		})
	}
}

func TestResponseCache_WithCache(t *testing.T) {
	client, mr := newClient(t)
	cache := NewResponseCache[embedding.Response](client, "emb")

	var calls atomic.Int32
	backend := provider.Func("fixed", func(_ context.Context, req embedding.Request) (embedding.Response, error) {
		calls.Add(1)
		return envelope.NewResponse[envelope.MaybeBatched[embedding.Vector], envelope.Usage](
			envelope.Single(embedding.Vector{0.6, 0.8}), nil), nil
	})
	cached := provider.WithCache(cache, embedding.CacheKey("bge"), time.Minute)(backend)

	req := embedding.NewRequest(envelope.Single(embedding.Text("hello")), embedding.Params{Normalize: true})
	for range 3 {
		resp, err := cached.Execute(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if v, ok := resp.Output.Single(); !ok || len(v) != 2 {
			t.Fatalf("output = %+v", resp.Output)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
	if keys := mr.Keys(); len(keys) != 1 || mr.TTL(keys[0]) != time.Minute {
		t.Errorf("keys = %v", keys)
	}
}

func TestComponent(t *testing.T) {
	mr := miniredis.RunT(t)
	comp, err := NewComponent(Config{Enabled: true, Addr: mr.Addr()}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health() = %+v", h)
	}
	if !comp.Client().IsAvailable(ctx) {
		t.Error("client should be available")
	}

	mr.Close()
	if h := comp.Health(ctx); h.Status != component.StatusDegraded || h.Message == "" {
		t.Errorf("Health() after server loss = %+v", h)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}
	if comp.Client().IsAvailable(ctx) {
		t.Error("client should be unavailable after Stop")
	}
}

func TestNewComponent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"disabled", Config{}},
		{"negative db", Config{Enabled: true, DB: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewComponent(tt.cfg, logger.NewNop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"defaults", Config{Enabled: true}, false},
		{"negative db", Config{Enabled: true, DB: -1}, true},
		{"backoff inverted", Config{Enabled: true, MinRetryBackoff: time.Second, MaxRetryBackoff: time.Millisecond}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.TTL != DefaultCacheTTL || cfg.KeyPrefix != "endpoints" || cfg.Addr != "localhost:6379" {
		t.Errorf("defaults = %+v", cfg)
	}
}
