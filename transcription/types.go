package transcription

import (
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/provider"
)

// Audio is the raw audio payload submitted for transcription.
type Audio struct {
	// Data is the encoded audio file (wav, flac, mp3, ...).
	Data []byte `json:"-"`
	// ContentType is the MIME type reported by the client, or "unknown".
	ContentType string `json:"content_type"`
	// Filename is the client-side file name, if any.
	Filename string `json:"filename,omitempty"`
}

// Params tunes the transcription process.
type Params struct {
	// Language is the ISO-639-1 language of the audio.
	Language string `json:"language"`
	// Prompt guides the model's style or continues a previous segment.
	Prompt string `json:"prompt,omitempty"`
	// Temperature is the sampling temperature, between 0 and 1.
	Temperature float32 `json:"temperature"`
	// TopK keeps the k most probable tokens. Zero disables it.
	TopK int `json:"top_k,omitempty"`
	// TopP is the nucleus sampling threshold.
	TopP float32 `json:"top_p"`
	// Timestamps asks the backend for segment-level timing.
	Timestamps bool `json:"timestamps"`
}

// DefaultParams returns English, greedy decoding and no nucleus cut.
func DefaultParams() Params {
	return Params{Language: "en", Temperature: 0, TopP: 1}
}

// Result is the output of a transcription.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float32   `json:"duration,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// Request is the typed transcription request carried through dispatch.
type Request = envelope.EndpointRequest[Audio, Params]

// Response is the typed transcription response.
type Response = envelope.EndpointResponse[Result, envelope.Usage]

// Handler is a transcription backend.
type Handler = provider.RequestResponse[Request, Response]

// NewRequest builds a Request from audio and params.
func NewRequest(audio Audio, params Params) Request {
	return envelope.NewRequest(audio, params)
}
