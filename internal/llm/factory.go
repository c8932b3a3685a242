// Package llm selects and constructs the persona-generation provider.
package llm

import (
	"fmt"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/llm/gemini"
	"github.com/personalens/personalens/internal/llm/mock"
	"github.com/personalens/personalens/internal/llm/openai"
	"github.com/personalens/personalens/pkg/models"
)

// NewProvider constructs the appropriate persona provider based on config.
// Called once at server startup.
func NewProvider(cfg config.LLMConfig) (models.PersonaProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "gemini":
		return gemini.NewProvider(cfg.Gemini), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q: must be one of openai, gemini, mock", cfg.Provider)
	}
}
