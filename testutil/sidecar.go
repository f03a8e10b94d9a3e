package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// TEISidecar is a fake text-embeddings-inference server. /embed answers
// every text input with Vector and, when PromptTokens is set, reports it in
// the x-prompt-tokens header.
type TEISidecar struct {
	*httptest.Server
	Vector       []float32
	PromptTokens int

	calls     atomic.Int32
	normalize atomic.Bool
}

// NewTEISidecar starts a TEI fake that is closed when the test ends.
func NewTEISidecar(t testing.TB, vector ...float32) *TEISidecar {
	t.Helper()
	s := &TEISidecar{Vector: vector}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Calls returns how many /embed requests were served.
func (s *TEISidecar) Calls() int { return int(s.calls.Load()) }

// Normalized reports the normalize flag of the last /embed request.
func (s *TEISidecar) Normalized() bool { return s.normalize.Load() }

func (s *TEISidecar) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/embed":
		s.calls.Add(1)
		var body struct {
			Inputs    []string `json:"inputs"`
			Normalize bool     `json:"normalize"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.normalize.Store(body.Normalize)
		out := make([][]float32, len(body.Inputs))
		for i := range out {
			out[i] = s.Vector
		}
		w.Header().Set("Content-Type", "application/json")
		if s.PromptTokens > 0 {
			w.Header().Set("x-prompt-tokens", strconv.Itoa(s.PromptTokens))
		}
		_ = json.NewEncoder(w).Encode(out)
	default:
		http.NotFound(w, r)
	}
}

// WhisperSidecar is a fake Whisper server. /transcribe answers every upload
// with Reply.
type WhisperSidecar struct {
	*httptest.Server
	Reply string
}

// NewWhisperSidecar starts a Whisper fake replying with the given JSON
// body. It is closed when the test ends.
func NewWhisperSidecar(t testing.TB, reply string) *WhisperSidecar {
	t.Helper()
	s := &WhisperSidecar{Reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *WhisperSidecar) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/transcribe":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			http.Error(w, "missing audio", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, s.Reply)
	default:
		http.NotFound(w, r)
	}
}
