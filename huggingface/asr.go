package huggingface

import (
	"encoding/base64"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/router"
	"github.com/kbukum/endpoints/transcription"
	"github.com/kbukum/endpoints/validation"
)

// GenerationParams tunes decoding. Only the sampling fields reach the
// backend; the rest are accepted for compatibility.
type GenerationParams struct {
	DoSample     *bool    `json:"do_sample,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK         *int     `json:"top_k,omitempty" validate:"omitempty,gte=0"`
	TopP         *float32 `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	NumBeams     *int     `json:"num_beams,omitempty"`
	MaxNewTokens *int     `json:"max_new_tokens,omitempty"`
}

// ASRParams are the parameters of an automatic speech recognition request.
type ASRParams struct {
	ReturnTimestamps bool              `json:"return_timestamps"`
	GenerationParams *GenerationParams `json:"generation_params,omitempty"`
}

// ASRRequest is the body of POST /predict: base64 audio and parameters.
type ASRRequest struct {
	Inputs     string    `json:"inputs" validate:"required"`
	Parameters ASRParams `json:"parameters"`

	audio []byte
}

// Decode validates the request and decodes its audio.
func (r *ASRRequest) Decode() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	audio, err := base64.StdEncoding.DecodeString(r.Inputs)
	if err != nil {
		return errors.InvalidInput("inputs", "must be base64-encoded audio").WithCause(err)
	}
	if len(audio) == 0 {
		return errors.InvalidInput("inputs", "audio is empty")
	}
	r.audio = audio
	return nil
}

// ASRChunk is a piece of text with its [start, end] timestamps in seconds.
type ASRChunk struct {
	Text       string    `json:"text"`
	Timestamps []float32 `json:"timestamps"`
}

// ASRResponse is the body returned by POST /predict.
type ASRResponse struct {
	Text   string     `json:"text"`
	Chunks []ASRChunk `json:"chunks"`
}

// ASRRouter routes native speech recognition requests to a transcription
// loop.
type ASRRouter = router.Router[ASRRequest, ASRResponse, transcription.Request, transcription.Response]

// NewASRRouter creates the native speech recognition router.
func NewASRRouter(endpoint dispatch.EndpointContext[transcription.Request, transcription.Response], opts ...router.Option) *ASRRouter {
	return router.New("transcription", endpoint, ASRToTyped, ASRToWire, opts...)
}

// ASRToTyped converts a decoded request.
func ASRToTyped(r ASRRequest) transcription.Request {
	params := transcription.DefaultParams()
	params.Timestamps = r.Parameters.ReturnTimestamps
	if g := r.Parameters.GenerationParams; g != nil {
		if g.Temperature != nil {
			params.Temperature = *g.Temperature
		}
		if g.TopK != nil {
			params.TopK = *g.TopK
		}
		if g.TopP != nil {
			params.TopP = *g.TopP
		}
	}
	return transcription.NewRequest(transcription.Audio{Data: r.audio, ContentType: "unknown"}, params)
}

// ASRToWire maps segments to chunks when timestamps were requested.
func ASRToWire(r ASRRequest, resp transcription.Response) (ASRResponse, error) {
	chunks := []ASRChunk{}
	if r.Parameters.ReturnTimestamps {
		for _, s := range resp.Output.Segments {
			chunks = append(chunks, ASRChunk{Text: s.Text, Timestamps: []float32{s.Start, s.End}})
		}
	}
	return ASRResponse{Text: resp.Output.Text, Chunks: chunks}, nil
}
