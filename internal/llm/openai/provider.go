package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/llm/prompt"
	"github.com/personalens/personalens/pkg/models"
)

// Provider implements models.PersonaProvider using the official OpenAI SDK.
type Provider struct {
	model  string
	client openai.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		model:  cfg.Model,
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) GeneratePersona(ctx context.Context, req models.PersonaRequest) (models.PersonaResult, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.Build(req)),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.PersonaResult{}, fmt.Errorf("openai completion: %w", context.DeadlineExceeded)
		}
		return models.PersonaResult{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return models.PersonaResult{}, fmt.Errorf("openai completion: empty response")
	}

	return models.PersonaResult{
		Persona: resp.Choices[0].Message.Content,
		Model:   p.model,
	}, nil
}

var _ models.PersonaProvider = (*Provider)(nil)
