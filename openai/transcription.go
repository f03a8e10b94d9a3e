package openai

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/router"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/transcription"
	"github.com/kbukum/endpoints/validation"
)

// ResponseFormat selects the transcription response body.
type ResponseFormat string

// Supported response formats.
const (
	FormatJSON        ResponseFormat = "json"
	FormatText        ResponseFormat = "text"
	FormatVerboseJSON ResponseFormat = "verbose_json"
)

// ParseResponseFormat accepts json, text and verbose_json. An empty value
// selects json.
func ParseResponseFormat(s string) (ResponseFormat, error) {
	switch ResponseFormat(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText, FormatVerboseJSON:
		return ResponseFormat(s), nil
	}
	return "", errors.Validation(fmt.Sprintf(
		"Unknown response_format: %s. Possible values are: 'json', 'verbose_json', 'text'.", s))
}

// TranscriptionRequest is the decoded multipart form of
// POST /v1/audio/transcriptions.
type TranscriptionRequest struct {
	Audio          transcription.Audio
	Language       string
	Prompt         string
	Temperature    float32
	ResponseFormat ResponseFormat
	// Model is accepted for client compatibility; the served model is fixed.
	Model  string
	Stream bool
}

// ParseTranscriptionRequest reads the multipart form of r. Fields are
// consumed in order and an unknown field fails immediately.
func ParseTranscriptionRequest(r *http.Request) (TranscriptionRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return TranscriptionRequest{}, errors.Validation("Expected a multipart/form-data body").WithCause(err)
	}

	var (
		req         TranscriptionRequest
		haveFile    bool
		format      string
		temperature string
		stream      string
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TranscriptionRequest{}, server.ReadError(err)
		}

		name := part.FormName()
		switch name {
		case "file":
			data, err := io.ReadAll(part)
			if err != nil {
				return TranscriptionRequest{}, server.ReadError(err)
			}
			contentType := part.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "unknown"
			}
			req.Audio = transcription.Audio{Data: data, ContentType: contentType, Filename: part.FileName()}
			haveFile = true
		case "language", "prompt", "temperature", "response_format", "model", "stream":
			value, err := readField(part)
			if err != nil {
				return TranscriptionRequest{}, err
			}
			switch name {
			case "language":
				req.Language = value
			case "prompt":
				req.Prompt = value
			case "temperature":
				temperature = value
			case "response_format":
				format = value
			case "model":
				req.Model = value
			case "stream":
				stream = value
			}
		default:
			return TranscriptionRequest{}, errors.Validation("Unknown field: " + name)
		}
	}

	if !haveFile {
		return TranscriptionRequest{}, errors.Validation("Required parameter 'file' was not provided")
	}
	if req.ResponseFormat, err = ParseResponseFormat(format); err != nil {
		return TranscriptionRequest{}, err
	}
	if req.Language == "" {
		req.Language = transcription.DefaultParams().Language
	}
	if temperature != "" {
		t, err := strconv.ParseFloat(temperature, 32)
		if err != nil {
			return TranscriptionRequest{}, errors.Validation("temperature must be a number")
		}
		if appErr := validation.New().FloatRange("temperature", t, 0, 1).Validate(); appErr != nil {
			return TranscriptionRequest{}, appErr
		}
		req.Temperature = float32(t)
	}
	if stream != "" {
		if req.Stream, err = strconv.ParseBool(stream); err != nil {
			return TranscriptionRequest{}, errors.Validation("stream must be a boolean")
		}
	}
	return req, nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return "", server.ReadError(err)
	}
	return string(data), nil
}

// Transcription is the json response body.
type Transcription struct {
	Text string `json:"text"`
}

// VerboseTranscription is the verbose_json response body.
type VerboseTranscription struct {
	Text     string                  `json:"text"`
	Duration float32                 `json:"duration"`
	Language string                  `json:"language"`
	Segments []transcription.Segment `json:"segments"`
}

// Stream events sent when stream=true.
const (
	EventTextDelta = "transcript.text.delta"
	EventTextDone  = "transcript.text.done"
)

// TextDelta carries one newly transcribed piece of text.
type TextDelta struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

// TextDone closes a stream with the full transcript.
type TextDone struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TranscriptionResponse is a rendered transcription in the requested form.
type TranscriptionResponse struct {
	Format ResponseFormat
	Stream bool
	Result transcription.Result
}

// Body returns the JSON value for json and verbose_json formats, or the
// plain text for the text format.
func (r TranscriptionResponse) Body() any {
	switch r.Format {
	case FormatText:
		return r.Result.Text
	case FormatVerboseJSON:
		segments := r.Result.Segments
		if segments == nil {
			segments = []transcription.Segment{}
		}
		return VerboseTranscription{
			Text:     r.Result.Text,
			Duration: r.Result.Duration,
			Language: r.Result.Language,
			Segments: segments,
		}
	default:
		return Transcription{Text: r.Result.Text}
	}
}

// Events returns the stream events: one delta per segment, or one for the
// whole text when the backend returned no segments, then done.
func (r TranscriptionResponse) Events() []any {
	events := make([]any, 0, len(r.Result.Segments)+2)
	for _, s := range r.Result.Segments {
		events = append(events, TextDelta{Type: EventTextDelta, Delta: s.Text})
	}
	if len(r.Result.Segments) == 0 && r.Result.Text != "" {
		events = append(events, TextDelta{Type: EventTextDelta, Delta: r.Result.Text})
	}
	return append(events, TextDone{Type: EventTextDone, Text: r.Result.Text})
}

// TranscriptionRouter routes OpenAI transcription requests to a
// transcription loop.
type TranscriptionRouter = router.Router[TranscriptionRequest, TranscriptionResponse, transcription.Request, transcription.Response]

// NewTranscriptionRouter creates the transcription task router.
func NewTranscriptionRouter(endpoint dispatch.EndpointContext[transcription.Request, transcription.Response], opts ...router.Option) *TranscriptionRouter {
	return router.New("transcription", endpoint, TranscriptionToTyped, TranscriptionToWire, opts...)
}

// TranscriptionToTyped converts a parsed form into a typed request.
// Segment timing is requested whenever the client will see segments.
func TranscriptionToTyped(r TranscriptionRequest) transcription.Request {
	params := transcription.DefaultParams()
	params.Language = r.Language
	params.Prompt = r.Prompt
	params.Temperature = r.Temperature
	params.Timestamps = r.ResponseFormat == FormatVerboseJSON || r.Stream
	return transcription.NewRequest(r.Audio, params)
}

// TranscriptionToWire keeps the result together with the requested format.
func TranscriptionToWire(r TranscriptionRequest, resp transcription.Response) (TranscriptionResponse, error) {
	return TranscriptionResponse{Format: r.ResponseFormat, Stream: r.Stream, Result: resp.Output}, nil
}
