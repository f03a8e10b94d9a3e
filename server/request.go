package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kbukum/endpoints/errors"
)

// DecodeJSON reads r's body into dst. Oversized bodies become 413 and
// malformed ones 400.
func DecodeJSON(r *http.Request, dst any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return ReadError(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return errors.Validation("Malformed JSON body").WithCause(err)
		}
		return errors.Validation(err.Error()).WithCause(err)
	}
	return nil
}

// ReadError classifies an error raised while reading a request body.
func ReadError(err error) *errors.AppError {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		return errors.PayloadTooLarge(fmt.Sprintf("%d byte", mbe.Limit)).WithCause(err)
	}
	return errors.Validation("Malformed request body").WithCause(err)
}
