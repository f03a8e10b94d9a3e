// Package embedding defines the typed text-embedding task: inputs that are
// either text or token ids, single or batched, and the float vectors a
// backend returns for them.
package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/provider"
)

// Input is one item to embed: raw text or pre-tokenized ids. Its JSON form
// is untagged, a string or an array of integers.
type Input struct {
	text   string
	tokens []uint32
	isIDs  bool
}

// Text wraps a text input.
func Text(s string) Input { return Input{text: s} }

// Tokens wraps a token id input.
func Tokens(ids ...uint32) Input {
	if ids == nil {
		ids = []uint32{}
	}
	return Input{tokens: ids, isIDs: true}
}

// IsTokens reports whether the input is pre-tokenized.
func (in Input) IsTokens() bool { return in.isIDs }

// Text returns the text of a text input.
func (in Input) Text() string { return in.text }

// Tokens returns the ids of a token input.
func (in Input) Tokens() []uint32 { return in.tokens }

func (in Input) MarshalJSON() ([]byte, error) {
	if in.isIDs {
		return json.Marshal(in.tokens)
	}
	return json.Marshal(in.text)
}

func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Text(s)
		return nil
	}
	var ids []uint32
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("embedding input must be a string or an array of token ids: %w", err)
	}
	*in = Tokens(ids...)
	return nil
}

// Params tunes how embeddings are produced. Both fields are forwarded to
// the backend; vectors it returns are never rewritten.
type Params struct {
	// Normalize asks for unit L2 norm vectors.
	Normalize bool `json:"normalize"`
	// Dimensions asks for vectors cut to their first n components. Zero
	// keeps the model's native size.
	Dimensions int `json:"dimensions,omitempty"`
}

// Vector is one embedding.
type Vector = []float32

// Request is the typed embedding request carried through dispatch.
type Request = envelope.EndpointRequest[envelope.MaybeBatched[Input], Params]

// Response is the typed embedding response. Output has the arity of the
// request inputs.
type Response = envelope.EndpointResponse[envelope.MaybeBatched[Vector], envelope.Usage]

// Handler is an embedding backend.
type Handler = provider.RequestResponse[Request, Response]

// NewRequest builds a Request.
func NewRequest(inputs envelope.MaybeBatched[Input], params Params) Request {
	return envelope.NewRequest(inputs, params)
}
