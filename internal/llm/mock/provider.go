package mock

import (
	"context"
	"fmt"

	"github.com/personalens/personalens/internal/llm/llmerrors"
	"github.com/personalens/personalens/pkg/models"
)

// MockProvider satisfies models.PersonaProvider for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, req models.PersonaRequest) (models.PersonaResult, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) GeneratePersona(ctx context.Context, req models.PersonaRequest) (models.PersonaResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.PersonaResult{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, req models.PersonaRequest) (models.PersonaResult, error) {
			persona := fmt.Sprintf(
				"# Customer Persona (mock)\n\nWebsite: %s\nKeywords: %s\nConfidence: %s\n\n"+
					"A simulated persona narrative for testing.",
				req.WebsiteURL, req.Keywords, req.Quality.Tier)
			return models.PersonaResult{Persona: persona, Model: "mock-v1"}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.PersonaRequest) (models.PersonaResult, error) {
			return models.PersonaResult{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ models.PersonaRequest) (models.PersonaResult, error) {
			<-ctx.Done()
			return models.PersonaResult{}, llmerrors.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements PersonaProvider.
var _ models.PersonaProvider = (*MockProvider)(nil)
