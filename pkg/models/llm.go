package models

import "context"

// PersonaProvider is the core interface all LLM integrations must implement.
// Never call a specific vendor directly — always inject this interface.
type PersonaProvider interface {
	// GeneratePersona synthesizes a customer persona narrative from whatever
	// collected data is present. Implementations must tolerate any subset of
	// the request's sections being nil and still produce a best-effort report.
	GeneratePersona(ctx context.Context, req PersonaRequest) (PersonaResult, error)
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// PersonaRequest aggregates the data-collection workers' outputs. Nil sections
// mean that worker produced nothing usable.
type PersonaRequest struct {
	WebsiteURL string
	Keywords   string
	Website    *WebsiteData
	Amazon     *AmazonData
	Reddit     *RedditData
	YouTube    *YouTubeData
	Quality    DataQuality
}

// PersonaResult is the provider's output.
type PersonaResult struct {
	Persona string
	Model   string
}
