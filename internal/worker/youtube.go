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
	youtubeMaxKeywords      = 3
	youtubeVideosPerKeyword = 3
	youtubeCommentsPerVideo = 20
)

// YouTubeWorker searches YouTube for the job's keywords and collects top
// comments from matched videos.
type YouTubeWorker struct {
	scraper scrape.YouTubeScraper
	store   store.Store
}

func NewYouTubeWorker(scraper scrape.YouTubeScraper, st store.Store) *YouTubeWorker {
	return &YouTubeWorker{scraper: scraper, store: st}
}

func (w *YouTubeWorker) Name() string { return models.DataTypeYouTube }

func (w *YouTubeWorker) Run(ctx context.Context, job *models.Job) error {
	start := time.Now()
	keywords := splitKeywords(job.TargetKeywords)
	if len(keywords) > youtubeMaxKeywords {
		keywords = keywords[:youtubeMaxKeywords]
	}

	data := models.YouTubeData{Comments: []models.YouTubeComment{}}
	var lastErr error

	for _, kw := range keywords {
		videos, err := w.scraper.SearchVideos(ctx, kw, youtubeVideosPerKeyword)
		if err != nil {
			slog.Warn("youtube search failed", "job_id", job.ID, "keyword", kw, "error", err)
			lastErr = err
			continue
		}

		for _, video := range videos {
			comments, err := w.scraper.CommentThreads(ctx, video.ID, youtubeCommentsPerVideo)
			if err != nil {
				slog.Warn("youtube comments failed", "job_id", job.ID, "video_id", video.ID, "error", err)
				lastErr = err
				continue
			}
			for i := range comments {
				comments[i].Keyword = kw
				comments[i].VideoTitle = video.Title
			}
			data.Comments = append(data.Comments, comments...)
		}
	}

	if lastErr == nil || len(data.Comments) > 0 {
		data.Success = true
	} else {
		data.Error = lastErr.Error()
	}

	data.Metadata = models.ScrapeMetadata{
		Source:    "youtube",
		ItemCount: len(data.Comments),
		Keywords:  keywords,
		ScrapedAt: time.Now().UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypeYouTube, data)
}

var _ Worker = (*YouTubeWorker)(nil)
