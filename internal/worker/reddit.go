package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/personalens/personalens/internal/scrape"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

const (
	redditMaxKeywords       = 3
	redditPostsPerKeyword   = 10
	redditThreadsPerKeyword = 3
	redditCommentsPerThread = 20
)

// RedditWorker searches Reddit for the job's keywords and collects posts plus
// comments from the highest-scoring threads.
type RedditWorker struct {
	scraper scrape.RedditScraper
	store   store.Store
}

func NewRedditWorker(scraper scrape.RedditScraper, st store.Store) *RedditWorker {
	return &RedditWorker{scraper: scraper, store: st}
}

func (w *RedditWorker) Name() string { return models.DataTypeReddit }

func (w *RedditWorker) Run(ctx context.Context, job *models.Job) error {
	start := time.Now()
	keywords := splitKeywords(job.TargetKeywords)
	if len(keywords) > redditMaxKeywords {
		keywords = keywords[:redditMaxKeywords]
	}

	data := models.RedditData{
		Posts:    []models.RedditPost{},
		Comments: []models.RedditComment{},
	}
	var lastErr error

	for _, kw := range keywords {
		posts, err := w.scraper.Search(ctx, kw, redditPostsPerKeyword)
		if err != nil {
			slog.Warn("reddit search failed", "job_id", job.ID, "keyword", kw, "error", err)
			lastErr = err
			continue
		}

		for i := range posts {
			posts[i].Relevance = relevance(posts[i].Title+" "+posts[i].Text, kw)
		}
		data.Posts = append(data.Posts, posts...)

		for _, post := range posts[:min(len(posts), redditThreadsPerKeyword)] {
			comments, err := w.scraper.Comments(ctx, post.Permalink, redditCommentsPerThread)
			if err != nil {
				slog.Warn("reddit comments failed", "job_id", job.ID, "permalink", post.Permalink, "error", err)
				lastErr = err
				continue
			}
			for i := range comments {
				comments[i].Keyword = kw
				comments[i].Relevance = relevance(comments[i].Text, kw)
			}
			data.Comments = append(data.Comments, comments...)
		}
	}

	// Partial results count as success; only a total blank caused by vendor
	// errors is a failed scrape.
	if lastErr == nil || len(data.Posts)+len(data.Comments) > 0 {
		data.Success = true
	} else {
		data.Error = lastErr.Error()
	}

	data.Metadata = models.ScrapeMetadata{
		Source:    "reddit",
		ItemCount: len(data.Posts) + len(data.Comments),
		Keywords:  keywords,
		ScrapedAt: time.Now().UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypeReddit, data)
}

var _ Worker = (*RedditWorker)(nil)
