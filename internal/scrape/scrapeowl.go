package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/pkg/models"
)

// ASIN extraction patterns for the Amazon URL shapes the intake form accepts.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`/product-reviews/([A-Z0-9]{10})`),
	regexp.MustCompile(`[?&]asin=([A-Z0-9]{10})`),
}

// ExtractASIN pulls the ASIN out of an Amazon product URL. Returns false when
// the URL does not contain a recognizable ASIN.
func ExtractASIN(rawURL string) (string, bool) {
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// AmazonScraper is the interface for fetching Amazon listing reviews.
type AmazonScraper interface {
	FetchReviews(ctx context.Context, asin string) ([]models.Review, error)
}

// ScrapeOwlClient implements AmazonScraper using ScrapeOwl's element
// extraction API against the listing's review page.
type ScrapeOwlClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewScrapeOwlClient creates a new ScrapeOwl HTTP client.
func NewScrapeOwlClient(cfg config.ScrapeOwlConfig) *ScrapeOwlClient {
	return &ScrapeOwlClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeoutOrDefault(cfg.Timeout, 90*time.Second)},
	}
}

type scrapeOwlElement struct {
	CSS      string `json:"css"`
	Multiple bool   `json:"multiple"`
}

type scrapeOwlRequest struct {
	APIKey   string             `json:"api_key"`
	URL      string             `json:"url"`
	RenderJS bool               `json:"render_js"`
	Elements []scrapeOwlElement `json:"elements"`
}

type scrapeOwlResult struct {
	Text string `json:"text"`
}

type scrapeOwlData struct {
	CSS     string            `json:"css"`
	Results []scrapeOwlResult `json:"results"`
}

type scrapeOwlResponse struct {
	Status int             `json:"status"`
	Data   []scrapeOwlData `json:"data"`
}

const (
	reviewTextSelector   = "[data-hook=review-body]"
	reviewRatingSelector = "[data-hook=review-star-rating]"
)

func (c *ScrapeOwlClient) FetchReviews(ctx context.Context, asin string) ([]models.Review, error) {
	reviewsURL := fmt.Sprintf("https://www.amazon.com/product-reviews/%s", asin)
	body, err := json.Marshal(scrapeOwlRequest{
		APIKey:   c.apiKey,
		URL:      reviewsURL,
		RenderJS: true,
		Elements: []scrapeOwlElement{
			{CSS: reviewTextSelector, Multiple: true},
			{CSS: reviewRatingSelector, Multiple: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding scrapeowl request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/scrape", c.baseURL)
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var owlResp scrapeOwlResponse
	if err := json.NewDecoder(resp.Body).Decode(&owlResp); err != nil {
		return nil, fmt.Errorf("decoding scrapeowl response: %w", err)
	}

	var texts []string
	var ratings []float64
	for _, el := range owlResp.Data {
		switch el.CSS {
		case reviewTextSelector:
			for _, r := range el.Results {
				if t := strings.TrimSpace(r.Text); t != "" {
					texts = append(texts, t)
				}
			}
		case reviewRatingSelector:
			for _, r := range el.Results {
				ratings = append(ratings, parseStarRating(r.Text))
			}
		}
	}

	reviews := make([]models.Review, 0, len(texts))
	for i, text := range texts {
		review := models.Review{Text: text, Source: "amazon"}
		if i < len(ratings) {
			review.Rating = ratings[i]
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// parseStarRating reads "4.0 out of 5 stars" style strings; 0 when unparsable.
func parseStarRating(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

var _ AmazonScraper = (*ScrapeOwlClient)(nil)
