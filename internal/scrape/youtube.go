package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/pkg/models"
)

// Video is one keyword-matched video from a YouTube search.
type Video struct {
	ID    string
	Title string
}

// YouTubeScraper is the interface for pulling comments via the YouTube Data
// API v3.
type YouTubeScraper interface {
	SearchVideos(ctx context.Context, keyword string, limit int) ([]Video, error)
	CommentThreads(ctx context.Context, videoID string, limit int) ([]models.YouTubeComment, error)
}

// YouTubeClient implements YouTubeScraper.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTubeClient creates a new YouTube Data API client.
func NewYouTubeClient(cfg config.YouTubeConfig) *YouTubeClient {
	return &YouTubeClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeoutOrDefault(cfg.Timeout, 30*time.Second)},
	}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeCommentsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TotalReplyCount int `json:"totalReplyCount"`
			TopLevelComment struct {
				Snippet struct {
					TextDisplay string `json:"textDisplay"`
					LikeCount   int    `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *YouTubeClient) SearchVideos(ctx context.Context, keyword string, limit int) ([]Video, error) {
	params := url.Values{
		"part": {"snippet"},
		"type": {"video"},
		"q":    {keyword},
		"key":  {c.apiKey},
	}
	if limit > 0 {
		params.Set("maxResults", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var searchResp youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding youtube search response: %w", err)
	}

	videos := make([]Video, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{ID: item.ID.VideoID, Title: item.Snippet.Title})
	}
	return videos, nil
}

func (c *YouTubeClient) CommentThreads(ctx context.Context, videoID string, limit int) ([]models.YouTubeComment, error) {
	params := url.Values{
		"part":    {"snippet"},
		"videoId": {videoID},
		"order":   {"relevance"},
		"key":     {c.apiKey},
	}
	if limit > 0 {
		params.Set("maxResults", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s/commentThreads?%s", c.baseURL, params.Encode())
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var commentsResp youtubeCommentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&commentsResp); err != nil {
		return nil, fmt.Errorf("decoding youtube comments response: %w", err)
	}

	comments := make([]models.YouTubeComment, 0, len(commentsResp.Items))
	for _, item := range commentsResp.Items {
		comments = append(comments, models.YouTubeComment{
			ID:      item.ID,
			Text:    item.Snippet.TopLevelComment.Snippet.TextDisplay,
			VideoID: videoID,
			Likes:   item.Snippet.TopLevelComment.Snippet.LikeCount,
			Replies: item.Snippet.TotalReplyCount,
		})
	}
	return comments, nil
}

var _ YouTubeScraper = (*YouTubeClient)(nil)
