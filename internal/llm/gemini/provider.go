package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/llm/prompt"
	"github.com/personalens/personalens/pkg/models"
)

// Provider implements models.PersonaProvider against the Gemini REST API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *Provider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) GeneratePersona(ctx context.Context, req models.PersonaRequest) (models.PersonaResult, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: prompt.System}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt.Build(req)}}}},
	})
	if err != nil {
		return models.PersonaResult{}, fmt.Errorf("encoding gemini request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.PersonaResult{}, fmt.Errorf("building gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.PersonaResult{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return models.PersonaResult{}, fmt.Errorf("decoding gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.PersonaResult{}, fmt.Errorf("gemini request: status %d: %s", resp.StatusCode, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return models.PersonaResult{}, fmt.Errorf("gemini request: empty response")
	}

	return models.PersonaResult{
		Persona: genResp.Candidates[0].Content.Parts[0].Text,
		Model:   p.model,
	}, nil
}

var _ models.PersonaProvider = (*Provider)(nil)
