package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/bootstrap"
	"github.com/kbukum/endpoints/config"
	"github.com/kbukum/endpoints/embedding/tei"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/redis"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/testutil"
	"github.com/kbukum/endpoints/transcription/whisper"
)

const testAPIKey = "sk-endpoint-test"

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T, teiURL, whisperURL string) *EndpointConfig {
	t.Helper()
	hash, err := auth.HashAPIKey(testAPIKey, 4)
	if err != nil {
		t.Fatal(err)
	}
	return &EndpointConfig{
		ServiceConfig: config.ServiceConfig{Name: "endpoint-test", Environment: "development"},
		Server:        server.Config{Host: "127.0.0.1", Port: freePort(t)},
		Auth: auth.Config{
			Enabled: true,
			APIKeys: []auth.APIKey{{Name: "test", Hash: hash}},
		},
		Redis: redis.Config{Enabled: true, Addr: miniredis.RunT(t).Addr()},
		Embeddings: EmbeddingsConfig{
			Enabled:  true,
			Model:    "bge-small",
			Backends: []tei.Config{{URL: teiURL}},
		},
		Transcription: TranscriptionConfig{
			Enabled:       true,
			MaxConcurrent: 2,
			Backends:      []whisper.Config{{URL: whisperURL}},
		},
	}
}

type client struct {
	t    *testing.T
	base string
}

func (c client) do(req *http.Request, authorized bool) (int, []byte) {
	c.t.Helper()
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func (c client) postJSON(ctx context.Context, path, body string, authorized bool) (int, []byte) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, authorized)
}

func (c client) get(ctx context.Context, path string) (int, []byte) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	return c.do(req, true)
}

func TestApp_ServesBothTasks(t *testing.T) {
	teiSrv := testutil.NewTEISidecar(t, 3, 4)
	whisperSrv := testutil.NewWhisperSidecar(t,
		`{"text":"hello world","language":"en","segments":[{"start":0,"end":1.5,"text":"hello world","tokens":[]}]}`)
	cfg := testConfig(t, teiSrv.URL, whisperSrv.URL)

	app, srv, err := newApp(cfg,
		bootstrap.WithLogger(logger.NewNop()),
		bootstrap.WithSummaryOutput(io.Discard),
		bootstrap.WithGracefulTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = app.RunTask(ctx, func(ctx context.Context) error {
		c := client{t: t, base: "http://" + srv.Addr()}

		if code, body := c.get(ctx, "/health"); code != http.StatusOK {
			t.Errorf("/health = %d %s", code, body)
		}

		if code, _ := c.postJSON(ctx, "/v1/embeddings", `{"input":"hi"}`, false); code != http.StatusUnauthorized {
			t.Errorf("unauthenticated embeddings = %d", code)
		}

		for i := 0; i < 2; i++ {
			code, body := c.postJSON(ctx, "/v1/embeddings", `{"input":["a","b"],"model":"bge-small"}`, true)
			if code != http.StatusOK {
				t.Fatalf("embeddings = %d %s", code, body)
			}
			var resp struct {
				Object string `json:"object"`
				Model  string `json:"model"`
				Data   []struct {
					Index     int       `json:"index"`
					Embedding []float64 `json:"embedding"`
				} `json:"data"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Object != "list" || resp.Model != "bge-small" || len(resp.Data) != 2 {
				t.Fatalf("response = %s", body)
			}
			v := resp.Data[1].Embedding
			if resp.Data[1].Index != 1 || len(v) != 2 || v[0] != 3 || v[1] != 4 {
				t.Errorf("data[1] = %+v", resp.Data[1])
			}
		}
		if n := teiSrv.Calls(); n != 1 {
			t.Errorf("backend embed calls = %d, want 1 with the cache in front", n)
		}
		if !teiSrv.Normalized() {
			t.Error("normalize was not forwarded to the backend")
		}

		code, body := c.postJSON(ctx, "/embed", `{"inputs":"hi","normalize":false}`, true)
		if code != http.StatusOK || strings.TrimSpace(string(body)) != "[3,4]" {
			t.Errorf("/embed = %d %s", code, body)
		}

		var form bytes.Buffer
		mw := multipart.NewWriter(&form)
		fw, _ := mw.CreateFormFile("file", "clip.wav")
		_, _ = fw.Write([]byte("RIFF"))
		_ = mw.WriteField("response_format", "text")
		_ = mw.Close()
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/audio/transcriptions", &form)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if code, body := c.do(req, true); code != http.StatusOK || string(body) != "hello world" {
			t.Errorf("transcriptions = %d %q", code, body)
		}

		code, body = c.get(ctx, "/metrics")
		if code != http.StatusOK || !strings.Contains(string(body), taskEmbeddings) || !strings.Contains(string(body), taskTranscription) {
			t.Errorf("/metrics = %d %s", code, body)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestApp_RejectsInvalidAPIKeyHash(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.Auth.APIKeys = []auth.APIKey{{Name: "broken", Hash: "not-bcrypt"}}
	if _, _, err := newApp(cfg, bootstrap.WithLogger(logger.NewNop()), bootstrap.WithSummaryOutput(io.Discard)); err == nil {
		t.Fatal("expected invalid api key hash to fail")
	}
}

func TestBackendNames(t *testing.T) {
	if got := backendNames("tei", 1); len(got) != 1 || got[0] != "tei" {
		t.Errorf("single = %v", got)
	}
	got := backendNames("whisper", 3)
	want := []string{"whisper-0", "whisper-1", "whisper-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names = %v", got)
			break
		}
	}
}

func TestUsageDrain_StopWaits(t *testing.T) {
	d := &usageDrain{}
	d.wg.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Stop(ctx); err == nil {
		t.Fatal("expected Stop to time out with an event in flight")
	}

	d.wg.Done()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
}

func TestApp_EmbeddingsPassBackendVectorsThrough(t *testing.T) {
	teiSrv := testutil.NewTEISidecar(t, 0.1, 0.2, 0.3)
	teiSrv.PromptTokens = 1
	cfg := testConfig(t, teiSrv.URL, "")
	cfg.Auth.Enabled = false
	cfg.Redis.Enabled = false
	cfg.Transcription.Enabled = false

	app, srv, err := newApp(cfg,
		bootstrap.WithLogger(logger.NewNop()),
		bootstrap.WithSummaryOutput(io.Discard),
		bootstrap.WithGracefulTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = app.RunTask(ctx, func(ctx context.Context) error {
		c := client{t: t, base: "http://" + srv.Addr()}
		code, body := c.postJSON(ctx, "/v1/embeddings", `{"input":"hello","encoding_format":"float"}`, false)
		if code != http.StatusOK {
			t.Fatalf("embeddings = %d %s", code, body)
		}
		want := `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`
		if got := strings.TrimSpace(string(body)); got != want {
			t.Errorf("body = %s\nwant  %s", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
