package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/scrape"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

// WebsiteWorker scrapes the business's own site for reviews, testimonials,
// and pain-point language.
type WebsiteWorker struct {
	scraper scrape.WebsiteScraper
	store   store.Store
}

func NewWebsiteWorker(scraper scrape.WebsiteScraper, st store.Store) *WebsiteWorker {
	return &WebsiteWorker{scraper: scraper, store: st}
}

func (w *WebsiteWorker) Name() string { return models.DataTypeWebsite }

func (w *WebsiteWorker) Run(ctx context.Context, job *models.Job) error {
	start := time.Now()
	data := models.WebsiteData{
		Reviews:    []models.Review{},
		PainPoints: []string{},
	}

	content, err := w.scraper.ScrapeSite(ctx, job.WebsiteURL)
	if err != nil {
		slog.Warn("website scrape failed", "job_id", job.ID, "error", err)
		data.Error = err.Error()
	} else {
		data.Success = true
		data.Reviews = extractReviews(content.Markdown)
		data.PainPoints = extractPainPoints(content.Markdown)
	}

	data.Metadata = models.ScrapeMetadata{
		Source:    "website",
		ItemCount: len(data.Reviews),
		ScrapedAt: time.Now().UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypeWebsite, data)
}

// Pain-point markers, from the language customers actually use in
// testimonials and FAQ copy.
var painMarkers = []string{
	"struggle", "frustrat", "problem", "pain", "tired of", "sick of",
	"couldn't", "could not", "annoying", "hard to", "difficult to",
}

// extractReviews pulls quoted sentences and blockquotes out of scraped
// markdown. Crude on purpose: the useful signal is customer phrasing, not
// perfect boundaries.
func extractReviews(markdown string) []models.Review {
	reviews := []models.Review{}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		var text string
		switch {
		case strings.HasPrefix(line, ">"):
			text = strings.TrimSpace(strings.TrimPrefix(line, ">"))
		case strings.Count(line, `"`) >= 2:
			first := strings.Index(line, `"`)
			last := strings.LastIndex(line, `"`)
			text = line[first+1 : last]
		}
		// Too short to be a testimonial.
		if len(text) < 30 {
			continue
		}
		reviews = append(reviews, models.Review{Text: text, Source: "website"})
	}
	return reviews
}

// extractPainPoints collects sentences containing pain-point markers.
func extractPainPoints(markdown string) []string {
	points := []string{}
	seen := map[string]bool{}
	for _, sentence := range strings.FieldsFunc(markdown, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 20 || len(sentence) > 400 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, marker := range painMarkers {
			if strings.Contains(lower, marker) && !seen[lower] {
				seen[lower] = true
				points = append(points, sentence)
				break
			}
		}
	}
	return points
}

var _ Worker = (*WebsiteWorker)(nil)
