package models

import (
	"time"

	"github.com/personalens/personalens/pkg/quality"
)

// Review is a single customer review or testimonial, regardless of source.
type Review struct {
	Text   string  `json:"text"`
	Rating float64 `json:"rating,omitempty"`
	Author string  `json:"author,omitempty"`
	Date   string  `json:"date,omitempty"`
	Source string  `json:"source,omitempty"`
}

// RedditPost is one search hit from Reddit's public JSON API.
type RedditPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Text          string  `json:"text"`
	Subreddit     string  `json:"subreddit"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	Keyword       string  `json:"keyword"`
	Relevance     float64 `json:"relevance"`
	Permalink     string  `json:"permalink"`
	CreatedAtUnix float64 `json:"created_at_unix"`
}

// RedditComment is a comment pulled from a matched post's thread.
type RedditComment struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Subreddit string  `json:"subreddit"`
	Score     int     `json:"score"`
	Keyword   string  `json:"keyword"`
	Relevance float64 `json:"relevance"`
}

// YouTubeComment is a top-level comment from a keyword-matched video.
type YouTubeComment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	VideoID    string `json:"video_id"`
	VideoTitle string `json:"video_title"`
	Likes      int    `json:"likes"`
	Replies    int    `json:"replies"`
	Keyword    string `json:"keyword"`
}

// ScrapeMetadata records how a worker run went, for the status API and the
// quality classifier.
type ScrapeMetadata struct {
	Source    string    `json:"source"`
	ItemCount int       `json:"item_count"`
	Keywords  []string  `json:"keywords,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
	Duration  string    `json:"duration,omitempty"`
}

// WebsiteData is the website worker's payload.
type WebsiteData struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Reviews    []Review       `json:"reviews"`
	PainPoints []string       `json:"pain_points"`
	Metadata   ScrapeMetadata `json:"metadata"`
}

// AmazonData is the Amazon worker's payload. Success is false when the
// listing URL is absent or no ASIN could be extracted; Reviews is empty but
// never nil in that case.
type AmazonData struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	ASIN     string         `json:"asin,omitempty"`
	Reviews  []Review       `json:"reviews"`
	Metadata ScrapeMetadata `json:"metadata"`
}

// CompetitorListing is one competitor Amazon listing's scraped reviews.
type CompetitorListing struct {
	URL     string   `json:"url"`
	ASIN    string   `json:"asin"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Reviews []Review `json:"reviews"`
}

// AmazonCompetitorsData is the Amazon worker's secondary payload, written only
// when the job carries competitor URLs.
type AmazonCompetitorsData struct {
	Success  bool                `json:"success"`
	Listings []CompetitorListing `json:"listings"`
	Metadata ScrapeMetadata      `json:"metadata"`
}

// RedditData is the Reddit worker's payload.
type RedditData struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Posts    []RedditPost    `json:"posts"`
	Comments []RedditComment `json:"comments"`
	Metadata ScrapeMetadata  `json:"metadata"`
}

// YouTubeData is the YouTube worker's payload.
type YouTubeData struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Comments []YouTubeComment `json:"comments"`
	Metadata ScrapeMetadata   `json:"metadata"`
}

// DataQuality annotates a persona report with how much signal backed it.
type DataQuality struct {
	Tier         quality.Tier `json:"tier"`
	ReviewCount  int          `json:"review_count"`
	SuccessRatio float64      `json:"success_ratio"`
	Sources      []string     `json:"sources"`
}

// PersonaData is the persona worker's payload: the LLM-generated report plus
// the quality annotation the report was generated under.
type PersonaData struct {
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	Persona     string      `json:"persona"`
	DataQuality DataQuality `json:"data_quality"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
}
