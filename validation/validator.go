package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/endpoints/errors"
)

// FieldError names one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors for values parsed outside JSON, such as
// multipart form fields.
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, message string) *Validator {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

// Errors returns the failing fields in check order.
func (v *Validator) Errors() []FieldError { return v.errors }

// Validate returns a 400 AppError listing every failing field, or nil.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errors)
}

// Required fails for blank values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.add(field, "is required")
	}
	return v
}

// FloatRange fails unless minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) *Validator {
	if value < minVal || value > maxVal {
		return v.add(field, fmt.Sprintf("must be between %g and %g", minVal, maxVal))
	}
	return v
}

func fieldsError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Field + ": " + f.Message
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}
