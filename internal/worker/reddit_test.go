package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/personalens/personalens/pkg/models"
)

type mockRedditScraper struct {
	posts       map[string][]models.RedditPost
	comments    map[string][]models.RedditComment
	searchErr   error
	commentsErr error
	searchCalls int
}

func (m *mockRedditScraper) Search(_ context.Context, keyword string, _ int) ([]models.RedditPost, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.posts[keyword], nil
}

func (m *mockRedditScraper) Comments(_ context.Context, permalink string, _ int) ([]models.RedditComment, error) {
	if m.commentsErr != nil {
		return nil, m.commentsErr
	}
	return m.comments[permalink], nil
}

func redditPayload(t *testing.T, st *memStore, job *models.Job) models.RedditData {
	t.Helper()
	entry, err := st.GetJobData(t.Context(), job.ID, models.DataTypeReddit)
	if err != nil {
		t.Fatalf("GetJobData: %v", err)
	}
	var data models.RedditData
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return data
}

func TestRedditWorkerAggregates(t *testing.T) {
	st := newMemStore()
	scraper := &mockRedditScraper{
		posts: map[string][]models.RedditPost{
			"standing desk": {
				{ID: "p1", Title: "best standing desk?", Permalink: "/r/desks/p1", Keyword: "standing desk"},
			},
			"back pain": {
				{ID: "p2", Title: "back pain from sitting", Permalink: "/r/health/p2", Keyword: "back pain"},
			},
		},
		comments: map[string][]models.RedditComment{
			"/r/desks/p1":  {{ID: "c1", Text: "my standing desk fixed everything"}},
			"/r/health/p2": {{ID: "c2", Text: "stretching helped more than anything"}},
		},
	}
	w := NewRedditWorker(scraper, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data := redditPayload(t, st, job)
	if !data.Success {
		t.Errorf("expected success=true, payload error: %q", data.Error)
	}
	if len(data.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(data.Posts))
	}
	if len(data.Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(data.Comments))
	}
	// Posts get a relevance score against their keyword.
	for _, p := range data.Posts {
		if p.Relevance == 0 {
			t.Errorf("post %s relevance = 0, want > 0", p.ID)
		}
	}
	// Comments are tagged with the keyword that found them.
	for _, c := range data.Comments {
		if c.Keyword == "" {
			t.Errorf("comment %s missing keyword tag", c.ID)
		}
	}
	if data.Metadata.ItemCount != 4 {
		t.Errorf("metadata item_count = %d, want 4", data.Metadata.ItemCount)
	}
}

func TestRedditWorkerCapsKeywords(t *testing.T) {
	st := newMemStore()
	scraper := &mockRedditScraper{}
	w := NewRedditWorker(scraper, st)
	job := testJob("")
	job.TargetKeywords = "a, b, c, d, e"

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scraper.searchCalls != redditMaxKeywords {
		t.Errorf("search called %d times, want %d", scraper.searchCalls, redditMaxKeywords)
	}
	if got := redditPayload(t, st, job).Metadata.Keywords; len(got) != redditMaxKeywords {
		t.Errorf("metadata keywords = %v, want first %d", got, redditMaxKeywords)
	}
}

func TestRedditWorkerTotalVendorFailure(t *testing.T) {
	st := newMemStore()
	w := NewRedditWorker(&mockRedditScraper{searchErr: errors.New("rate limited")}, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data := redditPayload(t, st, job)
	if data.Success {
		t.Error("expected success=false when every search failed")
	}
	if data.Error == "" {
		t.Error("expected vendor error recorded in payload")
	}
}

func TestRedditWorkerPartialFailureIsSuccess(t *testing.T) {
	st := newMemStore()
	scraper := &mockRedditScraper{
		posts: map[string][]models.RedditPost{
			"standing desk": {{ID: "p1", Title: "standing desk thread", Permalink: "/r/desks/p1"}},
		},
		commentsErr: errors.New("thread fetch failed"),
	}
	w := NewRedditWorker(scraper, st)
	job := testJob("")

	if err := w.Run(t.Context(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data := redditPayload(t, st, job)
	if !data.Success {
		t.Error("partial data should still count as success")
	}
	if len(data.Posts) != 1 {
		t.Errorf("got %d posts, want 1", len(data.Posts))
	}
}
