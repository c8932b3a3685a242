package llm

import "github.com/personalens/personalens/internal/llm/llmerrors"

// Re-exported from llmerrors so callers keep using llm.Err* while llm/mock can
// reference the same sentinel values without importing llm (import cycle).
var (
	ErrProviderUnavailable = llmerrors.ErrProviderUnavailable
	ErrInferenceTimeout    = llmerrors.ErrInferenceTimeout
	ErrInvalidResponse     = llmerrors.ErrInvalidResponse
)
