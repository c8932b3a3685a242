package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/personalens/personalens/pkg/models"
)

type mockAmazonScraper struct {
	reviews map[string][]models.Review
	err     error
	calls   int
}

func (m *mockAmazonScraper) FetchReviews(_ context.Context, asin string) ([]models.Review, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.reviews[asin], nil
}

func amazonPayload(t *testing.T, st *memStore, job *models.Job) models.AmazonData {
	t.Helper()
	entry, err := st.GetJobData(t.Context(), job.ID, models.DataTypeAmazon)
	if err != nil {
		t.Fatalf("GetJobData: %v", err)
	}
	var data models.AmazonData
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return data
}

func TestAmazonWorkerNoURL(t *testing.T) {
	st := newMemStore()
	scraper := &mockAmazonScraper{}
	w := NewAmazonWorker(scraper, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scraper.calls != 0 {
		t.Errorf("scraper called %d times, want 0", scraper.calls)
	}

	data := amazonPayload(t, st, job)
	if data.Success {
		t.Error("expected success=false without a listing URL")
	}
	if data.Reviews == nil || len(data.Reviews) != 0 {
		t.Errorf("reviews = %v, want empty non-null slice", data.Reviews)
	}
	if data.Error == "" {
		t.Error("expected explanatory error in payload")
	}
}

func TestAmazonWorkerNoASIN(t *testing.T) {
	st := newMemStore()
	scraper := &mockAmazonScraper{}
	w := NewAmazonWorker(scraper, st)
	job := testJob("https://www.amazon.com/stores/SomeBrand")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scraper.calls != 0 {
		t.Errorf("scraper called %d times, want 0", scraper.calls)
	}
	if data := amazonPayload(t, st, job); data.Success {
		t.Error("expected success=false for URL without an ASIN")
	}
}

func TestAmazonWorkerFetchesReviews(t *testing.T) {
	st := newMemStore()
	scraper := &mockAmazonScraper{reviews: map[string][]models.Review{
		"B08N5WRWNW": {{Text: "Great desk", Rating: 5, Source: "amazon"}},
	}}
	w := NewAmazonWorker(scraper, st)
	job := testJob("https://www.amazon.com/dp/B08N5WRWNW")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data := amazonPayload(t, st, job)
	if !data.Success {
		t.Errorf("expected success=true, payload error: %q", data.Error)
	}
	if data.ASIN != "B08N5WRWNW" {
		t.Errorf("asin = %q, want B08N5WRWNW", data.ASIN)
	}
	if len(data.Reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(data.Reviews))
	}
}

func TestAmazonWorkerVendorFailure(t *testing.T) {
	st := newMemStore()
	w := NewAmazonWorker(&mockAmazonScraper{err: errors.New("429 from vendor")}, st)
	job := testJob("https://www.amazon.com/dp/B08N5WRWNW")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data := amazonPayload(t, st, job)
	if data.Success {
		t.Error("expected success=false on vendor failure")
	}
	if data.Error == "" {
		t.Error("expected vendor error recorded in payload")
	}
}

func TestAmazonWorkerCompetitors(t *testing.T) {
	st := newMemStore()
	scraper := &mockAmazonScraper{reviews: map[string][]models.Review{
		"B08N5WRWNW": {{Text: "Great desk"}},
		"B07XJ8C8F5": {{Text: "Competitor is wobbly"}, {Text: "Cheap but loud"}},
	}}
	w := NewAmazonWorker(scraper, st)
	job := testJob("https://www.amazon.com/dp/B08N5WRWNW")
	job.CompetitorURLs = []string{
		"https://www.amazon.com/gp/product/B07XJ8C8F5",
		"https://www.amazon.com/stores/NoASINHere",
	}

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entry, err := st.GetJobData(t.Context(), job.ID, models.DataTypeAmazonCompetitors)
	if err != nil {
		t.Fatalf("competitors entry: %v", err)
	}
	var data models.AmazonCompetitorsData
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !data.Success {
		t.Error("expected success=true when any listing scraped")
	}
	if len(data.Listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(data.Listings))
	}
	if !data.Listings[0].Success || len(data.Listings[0].Reviews) != 2 {
		t.Errorf("first listing = %+v, want 2 reviews", data.Listings[0])
	}
	if data.Listings[1].Success {
		t.Error("listing without ASIN must be success=false")
	}
	if data.Metadata.ItemCount != 2 {
		t.Errorf("metadata item_count = %d, want 2", data.Metadata.ItemCount)
	}
}

func TestAmazonWorkerNoCompetitorEntryWithoutURLs(t *testing.T) {
	st := newMemStore()
	w := NewAmazonWorker(&mockAmazonScraper{}, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := st.GetJobData(t.Context(), job.ID, models.DataTypeAmazonCompetitors); err == nil {
		t.Error("expected no competitors entry when job has no competitor URLs")
	}
}
