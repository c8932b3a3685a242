package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/pkg/models"
)

// RedditScraper is the interface for pulling discussions from Reddit's public
// JSON API. No API key is needed; a descriptive User-Agent is.
type RedditScraper interface {
	Search(ctx context.Context, keyword string, limit int) ([]models.RedditPost, error)
	Comments(ctx context.Context, permalink string, limit int) ([]models.RedditComment, error)
}

// RedditClient implements RedditScraper against www.reddit.com.
type RedditClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewRedditClient creates a new Reddit JSON API client.
func NewRedditClient(cfg config.RedditConfig) *RedditClient {
	return &RedditClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeoutOrDefault(cfg.Timeout, 30*time.Second)},
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Body        string  `json:"body"`
				Subreddit   string  `json:"subreddit"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				Permalink   string  `json:"permalink"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *RedditClient) Search(ctx context.Context, keyword string, limit int) ([]models.RedditPost, error) {
	params := url.Values{
		"q":    {keyword},
		"sort": {"relevance"},
		"t":    {"year"},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding reddit search response: %w", err)
	}

	posts := make([]models.RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		posts = append(posts, models.RedditPost{
			ID:            d.ID,
			Title:         d.Title,
			Text:          d.Selftext,
			Subreddit:     d.Subreddit,
			Score:         d.Score,
			NumComments:   d.NumComments,
			Keyword:       keyword,
			Permalink:     d.Permalink,
			CreatedAtUnix: d.CreatedUTC,
		})
	}
	return posts, nil
}

func (c *RedditClient) Comments(ctx context.Context, permalink string, limit int) ([]models.RedditComment, error) {
	params := url.Values{"sort": {"top"}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s%s.json?%s", c.baseURL, strings.TrimSuffix(permalink, "/"), params.Encode())
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A thread endpoint returns [post listing, comment listing].
	var listings []redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decoding reddit thread response: %w", err)
	}
	if len(listings) < 2 {
		return []models.RedditComment{}, nil
	}

	var comments []models.RedditComment
	for _, child := range listings[1].Data.Children {
		d := child.Data
		if d.Body == "" {
			continue
		}
		comments = append(comments, models.RedditComment{
			ID:        d.ID,
			Text:      d.Body,
			Subreddit: d.Subreddit,
			Score:     d.Score,
		})
	}
	return comments, nil
}

var _ RedditScraper = (*RedditClient)(nil)
