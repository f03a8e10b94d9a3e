package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	w, err := NewWriter(rr)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Send(map[string]string{"type": "transcript.text.delta", "delta": "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := w.KeepAlive(); err != nil {
		t.Fatal(err)
	}

	if rr.Header().Get("Content-Type") != ContentType {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, `data: {"delta":"hi","type":"transcript.text.delta"}`+"\n\n") {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(body, ": keepalive ") {
		t.Errorf("missing keepalive: %q", body)
	}
	if w.Events() != 1 {
		t.Errorf("events = %d", w.Events())
	}
}

type plainWriter struct{ http.ResponseWriter }

func TestWriter_RequiresFlusher(t *testing.T) {
	if _, err := NewWriter(plainWriter{httptest.NewRecorder()}); err != ErrStreamingUnsupported {
		t.Errorf("err = %v", err)
	}
}
