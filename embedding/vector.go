package embedding

import (
	"context"
	"fmt"

	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/provider"
)

// WithArityCheck rejects backend output whose shape differs from the
// request: a single input must yield a single vector and a batch of n
// inputs a batch of n vectors. Vectors are passed through unchanged.
func WithArityCheck() provider.Middleware[Request, Response] {
	return func(inner Handler) Handler {
		return &arityChecked{inner: inner}
	}
}

type arityChecked struct {
	inner Handler
}

func (a *arityChecked) Name() string                         { return a.inner.Name() }
func (a *arityChecked) IsAvailable(ctx context.Context) bool { return a.inner.IsAvailable(ctx) }

func (a *arityChecked) Execute(ctx context.Context, req Request) (Response, error) {
	resp, err := a.inner.Execute(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp.Output.IsBatched() != req.Inputs.IsBatched() || resp.Output.Len() != req.Inputs.Len() {
		return Response{}, errors.Internal(fmt.Errorf("%s returned %d outputs for %d inputs",
			a.inner.Name(), resp.Output.Len(), req.Inputs.Len()))
	}
	return resp, nil
}

// EstimateUsage counts token ids exactly and approximates text as one
// token per four bytes, at least one per input.
func EstimateUsage(inputs envelope.MaybeBatched[Input]) envelope.Usage {
	var n uint
	for _, in := range inputs.Items() {
		if in.IsTokens() {
			n += uint(len(in.Tokens()))
			continue
		}
		n += max(uint(len(in.Text())+3)/4, 1)
	}
	return envelope.SameUsage(n)
}
