package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/personalens/personalens/internal/config"
)

// SiteContent is the scraped content of one page.
type SiteContent struct {
	Markdown    string
	Title       string
	Description string
}

// WebsiteScraper is the interface for fetching website content.
type WebsiteScraper interface {
	ScrapeSite(ctx context.Context, siteURL string) (*SiteContent, error)
}

// FirecrawlClient implements WebsiteScraper using Firecrawl's scrape endpoint.
type FirecrawlClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFirecrawlClient creates a new Firecrawl HTTP client.
func NewFirecrawlClient(cfg config.FirecrawlConfig) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeoutOrDefault(cfg.Timeout, 90*time.Second)},
	}
}

type firecrawlRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

func (c *FirecrawlClient) ScrapeSite(ctx context.Context, siteURL string) (*SiteContent, error) {
	body, err := json.Marshal(firecrawlRequest{URL: siteURL, Formats: []string{"markdown"}})
	if err != nil {
		return nil, fmt.Errorf("encoding firecrawl request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/scrape", c.baseURL)
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fcResp firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&fcResp); err != nil {
		return nil, fmt.Errorf("decoding firecrawl response: %w", err)
	}
	if !fcResp.Success {
		return nil, fmt.Errorf("%w: %s", ErrVendorRequest, fcResp.Error)
	}

	return &SiteContent{
		Markdown:    fcResp.Data.Markdown,
		Title:       fcResp.Data.Metadata.Title,
		Description: fcResp.Data.Metadata.Description,
	}, nil
}

var _ WebsiteScraper = (*FirecrawlClient)(nil)

// timeoutOrDefault keeps zero-value configs usable in tests.
func timeoutOrDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
