package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/provider"
	"github.com/kbukum/endpoints/testutil"
	"github.com/kbukum/endpoints/transcription"
)

func startLoop[I, O any](t *testing.T, h provider.RequestResponse[I, O]) dispatch.EndpointContext[I, O] {
	t.Helper()
	loop, err := dispatch.NewLoop("test", dispatch.NewQueue[I, O](), h, dispatch.Config{}, dispatch.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	testutil.Start(t, loop)
	return loop.Endpoint()
}

func newEngine(t *testing.T, emb embedding.Handler, asr transcription.Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	var h *Handlers
	switch {
	case emb != nil:
		h = NewHandlers(NewEmbeddingsRouter(startLoop(t, emb)), nil)
	default:
		h = NewHandlers(nil, NewASRRouter(startLoop(t, asr)))
	}
	h.Register(engine)
	return engine
}

func post(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

func TestEmbed(t *testing.T) {
	var seen embedding.Params
	h := provider.Func("fixed", func(_ context.Context, req embedding.Request) (embedding.Response, error) {
		seen = req.Parameters
		vs := make([]embedding.Vector, req.Inputs.Len())
		for i := range vs {
			vs[i] = embedding.Vector{0.5, 0.25}
		}
		out, err := envelope.Rebatch(req.Inputs, vs)
		return envelope.NewResponse[envelope.MaybeBatched[embedding.Vector], envelope.Usage](out, nil), err
	})
	engine := newEngine(t, h, nil)

	tests := []struct {
		name      string
		body      string
		want      string
		normalize bool
	}{
		{"single", `{"inputs":"hello"}`, `[0.5,0.25]`, true},
		{"batch", `{"inputs":["a","b"],"normalize":false}`, `[[0.5,0.25],[0.5,0.25]]`, false},
		{"tokens", `{"inputs":[101,102]}`, `[0.5,0.25]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(engine, "/embed", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
			if seen.Normalize != tt.normalize {
				t.Errorf("normalize = %v", seen.Normalize)
			}
		})
	}

	tooMany := `{"inputs":[` + strings.Repeat(`"a",`, embedding.MaxInputs) + `"a"]}`
	for _, bad := range []string{`{}`, `{"inputs":""}`, `{"inputs":"x","dimensions":-2}`, `{"inputs":["a",[1,2]]}`, tooMany} {
		if rr := post(engine, "/embed", bad); rr.Code != http.StatusBadRequest {
			t.Errorf("%.40s: status = %d", bad, rr.Code)
		}
	}
}

func TestPredict(t *testing.T) {
	var seen transcription.Request
	h := provider.Func("fixed", func(_ context.Context, req transcription.Request) (transcription.Response, error) {
		seen = req
		result := transcription.Result{
			Text: "hi there",
			Segments: []transcription.Segment{
				{Start: 0, End: 0.5, Text: "hi", Tokens: []uint32{}},
				{ID: 1, Start: 0.5, End: 1.25, Text: " there", Tokens: []uint32{}},
			},
		}
		return envelope.NewResponse[transcription.Result, envelope.Usage](result, nil), nil
	})
	engine := newEngine(t, nil, h)
	audio := base64.StdEncoding.EncodeToString([]byte("RIFF"))

	rr := post(engine, "/predict", `{"inputs":"`+audio+`","parameters":{"return_timestamps":true,"generation_params":{"temperature":0.3,"top_k":5}}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	want := `{"text":"hi there","chunks":[{"text":"hi","timestamps":[0,0.5]},{"text":" there","timestamps":[0.5,1.25]}]}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body = %s", got)
	}
	p := seen.Parameters
	if !bytes.Equal(seen.Inputs.Data, []byte("RIFF")) || !p.Timestamps || p.Temperature != 0.3 || p.TopK != 5 || p.Language != "en" {
		t.Errorf("typed request = %+v", seen)
	}

	rr = post(engine, "/predict", `{"inputs":"`+audio+`","parameters":{"return_timestamps":false}}`)
	if got := strings.TrimSpace(rr.Body.String()); got != `{"text":"hi there","chunks":[]}` {
		t.Errorf("without timestamps = %s", got)
	}
}

func TestPredict_Validation(t *testing.T) {
	h := provider.Func("unused", func(context.Context, transcription.Request) (transcription.Response, error) {
		t.Error("backend must not be called")
		return transcription.Response{}, nil
	})
	engine := newEngine(t, nil, h)

	tests := []struct {
		name string
		body string
	}{
		{"missing inputs", `{"parameters":{}}`},
		{"not base64", `{"inputs":"%%%"}`},
		{"temperature out of range", `{"inputs":"UklGRg==","parameters":{"generation_params":{"temperature":3}}}`},
		{"malformed", `{"inputs":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := post(engine, "/predict", tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d %s", rr.Code, rr.Body.String())
			}
		})
	}
}
