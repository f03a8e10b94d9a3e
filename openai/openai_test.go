package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/provider"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/transcription"
)

func startLoop[I, O any](t *testing.T, name string, h provider.RequestResponse[I, O]) *dispatch.Loop[I, O] {
	t.Helper()
	loop, err := dispatch.NewLoop(name, dispatch.NewQueue[I, O](), h, dispatch.Config{}, dispatch.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = loop.Stop(ctx)
	})
	return loop
}

func newServer(t *testing.T, emb embedding.Handler, asr transcription.Handler) *server.Server {
	t.Helper()
	cfg := server.Config{MaxBodySize: "1KB"}
	cfg.ApplyDefaults()
	s := server.New(cfg, logger.NewNop())
	s.ApplyMiddleware(nil)

	var embRouter *EmbeddingsRouter
	if emb != nil {
		embRouter = NewEmbeddingsRouter(startLoop(t, "embeddings", emb).Endpoint())
	}
	var asrRouter *TranscriptionRouter
	if asr != nil {
		asrRouter = NewTranscriptionRouter(startLoop(t, "transcription", asr).Endpoint())
	}
	NewHandlers(embRouter, asrRouter).Register(s.GinEngine())
	return s
}

func post(s *server.Server, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func fixedEmbedding(v embedding.Vector, usage *envelope.Usage) embedding.Handler {
	return provider.Func("fixed", func(_ context.Context, req embedding.Request) (embedding.Response, error) {
		vs := make([]embedding.Vector, req.Inputs.Len())
		for i := range vs {
			vs[i] = v
		}
		out, err := envelope.Rebatch(req.Inputs, vs)
		return envelope.NewResponse(out, usage), err
	})
}

func TestEmbeddings_EndToEnd(t *testing.T) {
	usage := envelope.SameUsage(1)
	s := newServer(t, fixedEmbedding(embedding.Vector{0.1, 0.2, 0.3}, &usage), nil)

	rr := post(s, "/v1/embeddings", "application/json", []byte(`{"input":"hello","encoding_format":"float"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	want := `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestEmbeddings_BatchAndModel(t *testing.T) {
	s := newServer(t, fixedEmbedding(embedding.Vector{1}, nil), nil)

	rr := post(s, "/embeddings", "application/json", []byte(`{"input":[[1,2],[3]],"model":"bge-small"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	var resp EmbeddingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[1].Index != 1 || resp.Model != "bge-small" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.PromptTokens != 3 {
		t.Errorf("estimated usage = %v", resp.Usage)
	}
}

func TestEmbeddings_Base64(t *testing.T) {
	s := newServer(t, fixedEmbedding(embedding.Vector{1.5, -2}, nil), nil)

	rr := post(s, "/v1/embeddings", "application/json", []byte(`{"input":"x","encoding_format":"base64"}`))
	var resp struct {
		Data []struct {
			Embedding string `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%v: %s", err, rr.Body.String())
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].Embedding)
	if err != nil || len(raw) != 8 {
		t.Fatalf("raw = %v %v", raw, err)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])); got != -2 {
		t.Errorf("second component = %v", got)
	}
}

func TestEmbeddings_Validation(t *testing.T) {
	var calls atomic.Int32
	h := provider.Func("counting", func(context.Context, embedding.Request) (embedding.Response, error) {
		calls.Add(1)
		return embedding.Response{}, nil
	})
	s := newServer(t, h, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing input", `{"model":"m"}`, http.StatusBadRequest},
		{"bad encoding", `{"input":"x","encoding_format":"int8"}`, http.StatusBadRequest},
		{"negative dimensions", `{"input":"x","dimensions":-1}`, http.StatusBadRequest},
		{"empty string", `{"input":""}`, http.StatusBadRequest},
		{"empty list", `{"input":[]}`, http.StatusBadRequest},
		{"mixed batch", `{"input":["a",[1,2]]}`, http.StatusBadRequest},
		{"wrong type", `{"input":{"text":"x"}}`, http.StatusBadRequest},
		{"malformed", `{"input":`, http.StatusBadRequest},
		{"too large", `{"input":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(s, "/v1/embeddings", "application/json", []byte(tt.body))
			if rr.Code != tt.code {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.code, rr.Body.String())
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

type formPart struct {
	name, filename, value string
}

func multipartBody(t *testing.T, parts ...formPart) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := w.CreateFormFile(p.name, p.filename)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = fw.Write([]byte(p.value))
			continue
		}
		if err := w.WriteField(p.name, p.value); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

func fixedTranscription(seen *transcription.Request) transcription.Handler {
	return provider.Func("fixed", func(_ context.Context, req transcription.Request) (transcription.Response, error) {
		if seen != nil {
			*seen = req
		}
		result := transcription.Result{
			Text:     "hello world",
			Language: req.Parameters.Language,
			Duration: 1.5,
			Segments: []transcription.Segment{
				{ID: 0, Start: 0, End: 0.7, Text: "hello", Tokens: []uint32{1}},
				{ID: 1, Start: 0.7, End: 1.5, Text: " world", Tokens: []uint32{2}},
			},
		}
		return envelope.NewResponse[transcription.Result, envelope.Usage](result, nil), nil
	})
}

func TestTranscriptions_Formats(t *testing.T) {
	var seen transcription.Request
	s := newServer(t, nil, fixedTranscription(&seen))

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"", "application/json", `{"text":"hello world"}`},
		{"json", "application/json", `{"text":"hello world"}`},
		{"text", "text/plain", "hello world"},
		{"verbose_json", "application/json", `"segments":[{"id":0`},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			parts := []formPart{{name: "file", filename: "a.wav", value: "RIFF"}, {name: "model", value: "whisper-1"}}
			if tt.format != "" {
				parts = append(parts, formPart{name: "response_format", value: tt.format})
			}
			body, ct := multipartBody(t, parts...)
			rr := post(s, "/v1/audio/transcriptions", ct, body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
			}
			if !strings.HasPrefix(rr.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Errorf("body = %s", rr.Body.String())
			}
		})
	}
	if seen.Parameters.Language != "en" || string(seen.Inputs.Data) != "RIFF" || seen.Inputs.Filename != "a.wav" {
		t.Errorf("typed request = %+v", seen)
	}
}

func TestTranscriptions_Params(t *testing.T) {
	var seen transcription.Request
	s := newServer(t, nil, fixedTranscription(&seen))

	body, ct := multipartBody(t,
		formPart{name: "language", value: "de"},
		formPart{name: "prompt", value: "Hallo"},
		formPart{name: "temperature", value: "0.4"},
		formPart{name: "response_format", value: "verbose_json"},
		formPart{name: "file", filename: "b.flac", value: "fLaC"},
	)
	rr := post(s, "/audio/transcriptions", ct, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	p := seen.Parameters
	if p.Language != "de" || p.Prompt != "Hallo" || p.Temperature != 0.4 || !p.Timestamps || p.TopP != 1 {
		t.Errorf("params = %+v", p)
	}
}

func TestTranscriptions_Stream(t *testing.T) {
	s := newServer(t, nil, fixedTranscription(nil))

	body, ct := multipartBody(t, formPart{name: "file", filename: "a.wav", value: "RIFF"}, formPart{name: "stream", value: "true"})
	rr := post(s, "/v1/audio/transcriptions", ct, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	want := `data: {"type":"transcript.text.delta","delta":"hello"}` + "\n\n" +
		`data: {"type":"transcript.text.delta","delta":" world"}` + "\n\n" +
		`data: {"type":"transcript.text.done","text":"hello world"}` + "\n\n"
	if rr.Body.String() != want {
		t.Errorf("stream =\n%q\nwant\n%q", rr.Body.String(), want)
	}
}

func TestTranscriptions_Validation(t *testing.T) {
	var calls atomic.Int32
	h := provider.Func("counting", func(context.Context, transcription.Request) (transcription.Response, error) {
		calls.Add(1)
		return transcription.Response{}, nil
	})
	s := newServer(t, nil, h)
	file := formPart{name: "file", filename: "a.wav", value: "RIFF"}

	tests := []struct {
		name    string
		parts   []formPart
		message string
	}{
		{"missing file", []formPart{{name: "language", value: "en"}}, "Required parameter 'file' was not provided"},
		{"unknown field", []formPart{file, {name: "speed", value: "2"}}, "Unknown field: speed"},
		{"bad format", []formPart{file, {name: "response_format", value: "srt"}}, "Unknown response_format: srt. Possible values are: 'json', 'verbose_json', 'text'."},
		{"bad temperature", []formPart{file, {name: "temperature", value: "warm"}}, "temperature"},
		{"temperature out of range", []formPart{file, {name: "temperature", value: "1.5"}}, "temperature"},
		{"bad stream flag", []formPart{file, {name: "stream", value: "maybe"}}, "stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.parts...)
			rr := post(s, "/v1/audio/transcriptions", ct, body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
			}
			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != "INVALID_INPUT" || !strings.Contains(resp.Error.Message, tt.message) {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}

	rr := post(s, "/v1/audio/transcriptions", "application/json", []byte(`{}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d", rr.Code)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

func TestTranscriptions_BodyTooLarge(t *testing.T) {
	s := newServer(t, nil, fixedTranscription(nil))
	body, ct := multipartBody(t, formPart{name: "file", filename: "a.wav", value: strings.Repeat("x", 4096)})

	req := httptest.NewRequest(http.MethodPost, "/v1/audio/transcriptions", bytes.NewReader(body))
	req.Header.Set("Content-Type", ct)
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d %s", rr.Code, rr.Body.String())
	}
}

func TestTranscriptions_BackendFailure(t *testing.T) {
	h := provider.Func("broken", func(context.Context, transcription.Request) (transcription.Response, error) {
		return transcription.Response{}, context.DeadlineExceeded
	})
	s := newServer(t, nil, h)
	body, ct := multipartBody(t, formPart{name: "file", filename: "a.wav", value: "RIFF"})
	rr := post(s, "/v1/audio/transcriptions", ct, body)
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), `"HANDLER_ERROR"`) {
		t.Errorf("status = %d %s", rr.Code, rr.Body.String())
	}
}

func TestEncodeBase64(t *testing.T) {
	if got := EncodeBase64(embedding.Vector{1}); got != "AACAPw==" {
		t.Errorf("EncodeBase64 = %q", got)
	}
}
