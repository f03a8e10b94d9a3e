package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "endpoint", buf)
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return m
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
	}{
		{"debug", true},
		{"info", false},
		{"not-a-level", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := jsonLogger(&buf, tt.level)
			l.Debug("queued")
			if (buf.Len() > 0) != tt.debugSeen {
				t.Errorf("debug written = %v", buf.Len() > 0)
			}
			l.Warn("slow backend")
			if lastLine(t, &buf)["level"] != "warn" {
				t.Errorf("line = %s", buf.String())
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-42")

	l.WithContext(ctx).Info("delivered")
	m := lastLine(t, &buf)
	if m[FieldRequestID] != "req-42" {
		t.Errorf("request_id = %v", m[FieldRequestID])
	}
	if m[FieldTraceID] != sc.TraceID().String() || m[FieldSpanID] != sc.SpanID().String() {
		t.Errorf("trace fields = %v / %v", m[FieldTraceID], m[FieldSpanID])
	}

	buf.Reset()
	l.WithContext(context.Background()).Info("bare")
	m = lastLine(t, &buf)
	if _, ok := m[FieldRequestID]; ok {
		t.Errorf("unexpected request id: %v", m)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context must have no request id")
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").
		WithComponent("dispatch").
		WithFields(Fields(FieldTask, "embeddings"))
	l.Error("handler failed", ErrorFields("invoke", errors.New("backend down")))

	m := lastLine(t, &buf)
	want := map[string]any{
		"service":      "endpoint",
		FieldComponent: "dispatch",
		FieldTask:      "embeddings",
		FieldOperation: "invoke",
		FieldError:     "backend down",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "info"))
	t.Cleanup(func() { SetGlobalLogger(nil) })

	Get("router").Info("routed")
	if m := lastLine(t, &buf); m[FieldComponent] != "router" {
		t.Errorf("line = %v", m)
	}
	Warn("draining", Fields("pending", 2))
	if m := lastLine(t, &buf); m["pending"] != float64(2) {
		t.Errorf("line = %v", m)
	}
	WithContext(ContextWithRequestID(context.Background(), "r1")).Info("x")
	if m := lastLine(t, &buf); m[FieldRequestID] != "r1" {
		t.Errorf("line = %v", m)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "endpoint", &buf).
		Info("ready", Fields("port", 8080))
	out := buf.String()
	for _, want := range []string{"[END][INF]", "ready", "port:8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q missing %q", out, want)
		}
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("defaults = %+v", cfg)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"json", Config{Level: "info", Format: "json"}, false},
		{"pretty", Config{Level: "debug", Format: "pretty"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	got := Fields("task", "embeddings", 7, "dropped", "items", 4, "trailing")
	if len(got) != 2 || got["task"] != "embeddings" || got["items"] != 4 {
		t.Errorf("Fields = %v", got)
	}
	if d := DurationFields("invoke", 150*time.Millisecond); d[FieldDuration] != int64(150) {
		t.Errorf("DurationFields = %v", d)
	}
}
