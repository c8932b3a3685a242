// Package llmerrors holds the llm sentinel errors in a leaf package so that
// both llm (which imports llm/mock in its factory) and llm/mock can reference
// them without an import cycle.
package llmerrors

import "errors"

var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrInferenceTimeout    = errors.New("llm inference timeout")
	ErrInvalidResponse     = errors.New("llm provider returned invalid response")
)
