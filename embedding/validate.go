package embedding

import (
	"fmt"

	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/errors"
)

// MaxInputs bounds the number of inputs in one request.
const MaxInputs = 2048

// ValidateInputs checks inputs before they are dispatched. There may be at
// most MaxInputs of them, none empty, and a batch is either all text or
// all token ids. field names the wire field in the error.
func ValidateInputs(field string, inputs envelope.MaybeBatched[Input]) error {
	items := inputs.Items()
	if len(items) > MaxInputs {
		return errors.InvalidInput(field, fmt.Sprintf("must not contain more than %d items", MaxInputs))
	}
	for _, in := range items {
		if (in.IsTokens() && len(in.Tokens()) == 0) || (!in.IsTokens() && in.Text() == "") {
			return errors.InvalidInput(field, "must not contain empty strings or token lists")
		}
		if in.IsTokens() != items[0].IsTokens() {
			return errors.InvalidInput(field, "must not mix text and token ids")
		}
	}
	return nil
}
