// Package openai binds the embedding and transcription tasks to the
// OpenAI platform wire format.
package openai

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/router"
	"github.com/kbukum/endpoints/validation"
)

// Encoding formats accepted by the embeddings endpoint.
const (
	EncodingFloat  = "float"
	EncodingBase64 = "base64"
)

// EmbeddingsRequest is the body of POST /v1/embeddings.
type EmbeddingsRequest struct {
	Input          *envelope.MaybeBatched[embedding.Input] `json:"input" validate:"required"`
	Model          string                                  `json:"model,omitempty"`
	Dimensions     int                                     `json:"dimensions,omitempty" validate:"gte=0"`
	EncodingFormat string                                  `json:"encoding_format,omitempty" validate:"omitempty,oneof=float base64"`
	User           string                                  `json:"user,omitempty"`
}

// Validate checks the request before it is dispatched.
func (r *EmbeddingsRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	return embedding.ValidateInputs("input", *r.Input)
}

// Embedding is one entry of EmbeddingsResponse.Data. Vector holds a
// []float32 or, for base64 encoding, a string.
type Embedding struct {
	Object string `json:"object"`
	Index  int    `json:"index"`
	Vector any    `json:"embedding"`
}

// EmbeddingsResponse is the body returned by POST /v1/embeddings.
type EmbeddingsResponse struct {
	Object string         `json:"object"`
	Data   []Embedding    `json:"data"`
	Model  string         `json:"model,omitempty"`
	Usage  envelope.Usage `json:"usage"`
}

// EmbeddingsRouter routes OpenAI embeddings requests to an embedding loop.
type EmbeddingsRouter = router.Router[EmbeddingsRequest, EmbeddingsResponse, embedding.Request, embedding.Response]

// NewEmbeddingsRouter creates the embeddings task router.
func NewEmbeddingsRouter(endpoint dispatch.EndpointContext[embedding.Request, embedding.Response], opts ...router.Option) *EmbeddingsRouter {
	return router.New("embeddings", endpoint, EmbeddingsToTyped, EmbeddingsToWire, opts...)
}

// EmbeddingsToTyped converts a validated wire request. OpenAI embeddings
// are unit length, so the backend is always asked to normalize.
func EmbeddingsToTyped(r EmbeddingsRequest) embedding.Request {
	return embedding.NewRequest(*r.Input, embedding.Params{
		Normalize:  true,
		Dimensions: r.Dimensions,
	})
}

// EmbeddingsToWire renders backend vectors in the requested encoding.
// Usage is estimated when the backend reports none.
func EmbeddingsToWire(r EmbeddingsRequest, resp embedding.Response) (EmbeddingsResponse, error) {
	vectors := resp.Output.Items()
	data := make([]Embedding, len(vectors))
	for i, v := range vectors {
		var encoded any = v
		if r.EncodingFormat == EncodingBase64 {
			encoded = EncodeBase64(v)
		}
		data[i] = Embedding{Object: "embedding", Index: i, Vector: encoded}
	}

	usage := embedding.EstimateUsage(*r.Input)
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	return EmbeddingsResponse{
		Object: "list",
		Data:   data,
		Model:  r.Model,
		Usage:  usage,
	}, nil
}

// EncodeBase64 encodes v as little-endian float32 bytes.
func EncodeBase64(v embedding.Vector) string {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return base64.StdEncoding.EncodeToString(buf)
}
