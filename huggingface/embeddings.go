// Package huggingface binds the embedding and speech recognition tasks to
// the Hugging Face Inference Endpoints wire format.
package huggingface

import (
	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/router"
	"github.com/kbukum/endpoints/validation"
)

// EmbeddingsRequest is the body of POST /embed. Parameters sit next to
// inputs rather than under a parameters object.
type EmbeddingsRequest struct {
	Inputs *envelope.MaybeBatched[embedding.Input] `json:"inputs" validate:"required"`
	// Normalize defaults to true.
	Normalize  *bool `json:"normalize,omitempty"`
	Dimensions int   `json:"dimensions,omitempty" validate:"gte=0"`
}

// Validate checks the request before it is dispatched.
func (r *EmbeddingsRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	return embedding.ValidateInputs("inputs", *r.Inputs)
}

// EmbeddingsRouter routes native embeddings requests to an embedding loop.
// The wire response is the bare vector or list of vectors.
type EmbeddingsRouter = router.Router[EmbeddingsRequest, envelope.MaybeBatched[embedding.Vector], embedding.Request, embedding.Response]

// NewEmbeddingsRouter creates the native embeddings router.
func NewEmbeddingsRouter(endpoint dispatch.EndpointContext[embedding.Request, embedding.Response], opts ...router.Option) *EmbeddingsRouter {
	return router.New("embeddings", endpoint, EmbeddingsToTyped, EmbeddingsToWire, opts...)
}

// EmbeddingsToTyped converts a validated wire request.
func EmbeddingsToTyped(r EmbeddingsRequest) embedding.Request {
	normalize := true
	if r.Normalize != nil {
		normalize = *r.Normalize
	}
	return embedding.NewRequest(*r.Inputs, embedding.Params{Normalize: normalize, Dimensions: r.Dimensions})
}

// EmbeddingsToWire returns the backend output unchanged.
func EmbeddingsToWire(_ EmbeddingsRequest, resp embedding.Response) (envelope.MaybeBatched[embedding.Vector], error) {
	return resp.Output, nil
}
