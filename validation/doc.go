// Package validation checks wire requests before anything is dispatched.
//
// Struct tags cover declarative rules:
//
//	type EmbeddingsRequest struct {
//	    EncodingFormat string `json:"encoding_format" validate:"omitempty,oneof=float base64"`
//	    Dimensions     *int   `json:"dimensions" validate:"omitempty,gte=1"`
//	}
//	if err := validation.Validate(req); err != nil { ... }
//
// The fluent Validator covers rules that depend on parsed values:
//
//	v := validation.New().FloatRange("temperature", t, 0, 1)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
