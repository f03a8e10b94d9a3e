package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/resilience"
)

func TestPost_JSONAndRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if id := r.Header.Get(HeaderRequestID); id != "req-1" {
			t.Errorf("request id = %q", id)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("X-Prompt-Tokens", "3")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["in"]})
	}))
	defer srv.Close()

	a, err := New(Config{Name: "test", BaseURL: srv.URL, Token: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	resp, err := Post[map[string]string](ctx, a, "/echo", map[string]string{"in": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data["echo"] != "hi" {
		t.Errorf("data = %v", resp.Data)
	}
	if resp.Header("x-prompt-tokens") != "3" {
		t.Errorf("header = %q", resp.Header("x-prompt-tokens"))
	}
}

func TestPost_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse: %v", err)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFF" || hdr.Filename != "a.wav" {
			t.Errorf("file = %q %q", data, hdr.Filename)
		}
		if hdr.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("part content-type = %q", hdr.Header.Get("Content-Type"))
		}
		_, _ = w.Write([]byte(`{"language":"` + r.FormValue("language") + `"}`))
	}))
	defer srv.Close()

	a, _ := New(Config{BaseURL: srv.URL})
	body := &MultipartBody{
		Fields: map[string]string{"language": "fr"},
		Files:  []FileField{{FieldName: "audio", FileName: "a.wav", ContentType: "audio/wav", Data: []byte("RIFF")}},
	}
	resp, err := Post[map[string]string](context.Background(), a, "/transcribe", body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data["language"] != "fr" {
		t.Errorf("language = %q", resp.Data["language"])
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	retry.MaxBackoff = 5 * time.Millisecond
	a, _ := New(Config{BaseURL: srv.URL, Retry: retry})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("body = %q after %d calls", resp.Body, calls.Load())
	}
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a, _ := New(Config{BaseURL: srv.URL, Retry: retry})
	_, err := a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/embed", Body: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d", calls.Load())
	}
	appErr := ToAppError("tei", err)
	if appErr.HTTPStatus != http.StatusBadRequest || !strings.Contains(appErr.Message, "bad input") {
		t.Errorf("app error = %d %q", appErr.HTTPStatus, appErr.Message)
	}
}

func TestCircuitBreakerMakesAdapterUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := resilience.DefaultCircuitBreakerConfig("flaky")
	cb.MaxFailures = 2
	cb.Timeout = time.Minute
	a, _ := New(Config{BaseURL: srv.URL, CircuitBreaker: &cb})
	for range 2 {
		_, _ = a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	}
	if a.IsAvailable(context.Background()) {
		t.Fatal("expected open circuit")
	}
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if got := ToAppError("flaky", err); got.Code != errors.ErrCodeServiceUnavailable {
		t.Errorf("code = %s", got.Code)
	}

	c := &Component{adapter: a}
	if h := c.Health(context.Background()); h.Status != "degraded" {
		t.Errorf("health = %s", h.Status)
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"timeout", NewTimeoutError(context.DeadlineExceeded), errors.ErrCodeTimeout},
		{"connection", NewConnectionError(io.EOF), errors.ErrCodeServiceUnavailable},
		{"rate limit", ClassifyStatusCode(http.StatusTooManyRequests, nil), errors.ErrCodeRateLimited},
		{"server", ClassifyStatusCode(http.StatusBadGateway, nil), errors.ErrCodeExternalService},
		{"rejected input", ClassifyStatusCode(http.StatusRequestEntityTooLarge, []byte("input too long")), errors.ErrCodeInvalidInput},
		{"app error passes", errors.Validation("nope"), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToAppError("svc", tt.err); got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
		failure   bool
	}{
		{http.StatusUnauthorized, ErrCodeAuth, false, true},
		{http.StatusNotFound, ErrCodeNotFound, false, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true, true},
		{http.StatusUnprocessableEntity, ErrCodeValidation, false, false},
		{http.StatusServiceUnavailable, ErrCodeServer, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, nil)
			if err == nil || err.Code != tt.code {
				t.Fatalf("ClassifyStatusCode(%d) = %v", tt.status, err)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v", IsRetryable(err))
			}
			if IsBackendFailure(err) != tt.failure {
				t.Errorf("backend failure = %v", IsBackendFailure(err))
			}
		})
	}
	if ClassifyStatusCode(http.StatusOK, nil) != nil {
		t.Error("2xx must not be an error")
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a, _ := New(Config{BaseURL: srv.URL})
	if !Probe(context.Background(), a, "/health") {
		t.Error("expected healthy probe")
	}
	if Probe(context.Background(), a, "/missing") {
		t.Error("expected failed probe")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{TLS: &TLSConfig{CertFile: "cert.pem"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected cert/key mismatch error")
	}
	if _, err := New(cfg); err == nil {
		t.Error("New should reject invalid config")
	}
}
