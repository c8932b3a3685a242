package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/personalens/personalens/internal/scrape"
	"github.com/personalens/personalens/pkg/models"
)

type mockWebsiteScraper struct {
	content *scrape.SiteContent
	err     error
}

func (m *mockWebsiteScraper) ScrapeSite(_ context.Context, _ string) (*scrape.SiteContent, error) {
	return m.content, m.err
}

const sampleMarkdown = `# Ergo Standing Desk

> This desk completely changed how I work, my back pain is gone after two weeks.

Some marketing copy here.

She said "I was tired of hunching over my laptop all day and nothing helped" about her old setup.

Short "quote" stays out.
`

func TestWebsiteWorkerRun(t *testing.T) {
	st := newMemStore()
	w := NewWebsiteWorker(&mockWebsiteScraper{content: &scrape.SiteContent{Markdown: sampleMarkdown}}, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entry, err := st.GetJobData(t.Context(), job.ID, models.DataTypeWebsite)
	if err != nil {
		t.Fatalf("GetJobData: %v", err)
	}
	var data models.WebsiteData
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if !data.Success {
		t.Error("expected success=true")
	}
	if len(data.Reviews) != 2 {
		t.Fatalf("got %d reviews, want 2: %+v", len(data.Reviews), data.Reviews)
	}
	if data.Reviews[0].Source != "website" {
		t.Errorf("review source = %q, want website", data.Reviews[0].Source)
	}
	if len(data.PainPoints) == 0 {
		t.Error("expected pain points extracted from 'tired of' sentence")
	}
	if data.Metadata.ItemCount != 2 {
		t.Errorf("metadata item_count = %d, want 2", data.Metadata.ItemCount)
	}
}

func TestWebsiteWorkerVendorFailure(t *testing.T) {
	st := newMemStore()
	w := NewWebsiteWorker(&mockWebsiteScraper{err: errors.New("vendor down")}, st)
	job := testJob("")

	// A scrape failure is recorded in the payload, not surfaced as an error.
	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entry, err := st.GetJobData(t.Context(), job.ID, models.DataTypeWebsite)
	if err != nil {
		t.Fatalf("GetJobData: %v", err)
	}
	var data models.WebsiteData
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if data.Success {
		t.Error("expected success=false")
	}
	if data.Error == "" {
		t.Error("expected error recorded in payload")
	}
	if data.Reviews == nil || data.PainPoints == nil {
		t.Error("reviews and pain_points must be empty, not null")
	}
}

func TestExtractPainPointsDedupes(t *testing.T) {
	md := "I was tired of my old desk and it hurt. I was tired of my old desk and it hurt."
	points := extractPainPoints(md)
	if len(points) != 1 {
		t.Errorf("got %d pain points, want 1 after dedupe: %v", len(points), points)
	}
}
