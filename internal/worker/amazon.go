package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/personalens/personalens/internal/scrape"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

// AmazonWorker scrapes the job's Amazon listing reviews, and competitor
// listings when the job carries competitor URLs. A missing or unparsable
// listing URL is not a failure of the run: the worker records success:false
// with zero reviews and the orchestrator proceeds.
type AmazonWorker struct {
	scraper scrape.AmazonScraper
	store   store.Store
}

func NewAmazonWorker(scraper scrape.AmazonScraper, st store.Store) *AmazonWorker {
	return &AmazonWorker{scraper: scraper, store: st}
}

func (w *AmazonWorker) Name() string { return models.DataTypeAmazon }

func (w *AmazonWorker) Run(ctx context.Context, job *models.Job) error {
	if err := w.runListing(ctx, job); err != nil {
		return err
	}
	if len(job.CompetitorURLs) > 0 {
		return w.runCompetitors(ctx, job)
	}
	return nil
}

func (w *AmazonWorker) runListing(ctx context.Context, job *models.Job) error {
	start := time.Now()
	data := models.AmazonData{Reviews: []models.Review{}}

	switch {
	case job.AmazonURL == nil || *job.AmazonURL == "":
		data.Error = "no amazon url provided"
	default:
		asin, ok := scrape.ExtractASIN(*job.AmazonURL)
		if !ok {
			data.Error = "no ASIN found in amazon url"
			break
		}
		data.ASIN = asin
		reviews, err := w.scraper.FetchReviews(ctx, asin)
		if err != nil {
			slog.Warn("amazon scrape failed", "job_id", job.ID, "asin", asin, "error", err)
			data.Error = err.Error()
			break
		}
		data.Success = true
		data.Reviews = reviews
	}

	data.Metadata = models.ScrapeMetadata{
		Source:    "amazon",
		ItemCount: len(data.Reviews),
		ScrapedAt: time.Now().UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypeAmazon, data)
}

func (w *AmazonWorker) runCompetitors(ctx context.Context, job *models.Job) error {
	start := time.Now()
	data := models.AmazonCompetitorsData{Listings: []models.CompetitorListing{}}

	for _, u := range job.CompetitorURLs {
		listing := models.CompetitorListing{URL: u, Reviews: []models.Review{}}
		asin, ok := scrape.ExtractASIN(u)
		if !ok {
			listing.Error = "no ASIN found in competitor url"
			data.Listings = append(data.Listings, listing)
			continue
		}
		listing.ASIN = asin

		reviews, err := w.scraper.FetchReviews(ctx, asin)
		if err != nil {
			slog.Warn("competitor scrape failed", "job_id", job.ID, "asin", asin, "error", err)
			listing.Error = err.Error()
		} else {
			listing.Success = true
			listing.Reviews = reviews
			data.Success = true
		}
		data.Listings = append(data.Listings, listing)
	}

	total := 0
	for _, l := range data.Listings {
		total += len(l.Reviews)
	}
	data.Metadata = models.ScrapeMetadata{
		Source:    "amazon_competitors",
		ItemCount: total,
		ScrapedAt: time.Now().UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypeAmazonCompetitors, data)
}

var _ Worker = (*AmazonWorker)(nil)
