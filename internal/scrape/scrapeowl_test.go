package scrape

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/personalens/personalens/internal/config"
)

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		url  string
		asin string
		ok   bool
	}{
		{"https://www.amazon.com/dp/B08N5WRWNW", "B08N5WRWNW", true},
		{"https://www.amazon.com/Some-Product-Name/dp/B08N5WRWNW/ref=sr_1_1", "B08N5WRWNW", true},
		{"https://www.amazon.com/gp/product/B000123ABC", "B000123ABC", true},
		{"https://www.amazon.com/product-reviews/B07XJ8C8F5", "B07XJ8C8F5", true},
		{"https://www.amazon.co.uk/dp/B08N5WRWNW?th=1", "B08N5WRWNW", true},
		{"https://www.amazon.com/s?k=widgets&asin=B08N5WRWNW", "B08N5WRWNW", true},
		{"https://www.amazon.com/s?k=widgets", "", false},
		{"https://example.com/dp/short", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		asin, ok := ExtractASIN(tt.url)
		if ok != tt.ok || asin != tt.asin {
			t.Errorf("ExtractASIN(%q) = (%q, %v), want (%q, %v)", tt.url, asin, ok, tt.asin, tt.ok)
		}
	}
}

func TestFetchReviews_ParsesElements(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scrapeOwlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.APIKey != "owl-test" {
			t.Errorf("unexpected api key: %s", req.APIKey)
		}
		if req.URL != "https://www.amazon.com/product-reviews/B08N5WRWNW" {
			t.Errorf("unexpected url: %s", req.URL)
		}

		resp := scrapeOwlResponse{
			Status: 200,
			Data: []scrapeOwlData{
				{
					CSS: reviewTextSelector,
					Results: []scrapeOwlResult{
						{Text: "Love it, use it daily"},
						{Text: "  Broke after a week  "},
						{Text: ""},
					},
				},
				{
					CSS: reviewRatingSelector,
					Results: []scrapeOwlResult{
						{Text: "5.0 out of 5 stars"},
						{Text: "1.0 out of 5 stars"},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewScrapeOwlClient(config.ScrapeOwlConfig{
		APIKey:  "owl-test",
		BaseURL: ts.URL,
		Timeout: 5 * time.Second,
	})

	reviews, err := client.FetchReviews(t.Context(), "B08N5WRWNW")
	if err != nil {
		t.Fatalf("FetchReviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	if reviews[0].Text != "Love it, use it daily" || reviews[0].Rating != 5.0 {
		t.Errorf("unexpected first review: %+v", reviews[0])
	}
	if reviews[1].Text != "Broke after a week" || reviews[1].Rating != 1.0 {
		t.Errorf("unexpected second review: %+v", reviews[1])
	}
	if reviews[0].Source != "amazon" {
		t.Errorf("unexpected source: %s", reviews[0].Source)
	}
}

func TestParseStarRating(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"4.0 out of 5 stars", 4.0},
		{"5.0", 5.0},
		{"not a rating", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseStarRating(tt.in); got != tt.want {
			t.Errorf("parseStarRating(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
