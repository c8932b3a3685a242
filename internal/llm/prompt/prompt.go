// Package prompt renders a PersonaRequest into the text sent to an LLM.
// Shared by every real provider so switching vendors never changes the brief.
package prompt

import (
	"fmt"
	"strings"

	"github.com/personalens/personalens/pkg/models"
)

// System is the system prompt framing the persona task.
const System = `You are a senior market researcher. From the customer voice data provided, ` +
	`write a detailed customer persona report in markdown: demographics, goals, ` +
	`pain points, buying objections, and the language customers use. Quote real ` +
	`phrases from the data where possible. If data is sparse, say so and keep ` +
	`claims conservative.`

const maxQuotesPerSection = 25

// Build renders the user prompt. Sections are included only for sources that
// produced data; an all-empty request still yields a valid degraded brief.
func Build(req models.PersonaRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Business website: %s\n", req.WebsiteURL)
	fmt.Fprintf(&b, "Target keywords: %s\n", req.Keywords)
	fmt.Fprintf(&b, "Data confidence: %s (%d reviews collected, %.0f%% of sources succeeded)\n\n",
		req.Quality.Tier, req.Quality.ReviewCount, req.Quality.SuccessRatio*100)

	if req.Website != nil && req.Website.Success {
		b.WriteString("## Website reviews and testimonials\n")
		writeReviews(&b, req.Website.Reviews)
		if len(req.Website.PainPoints) > 0 {
			b.WriteString("Pain points found on site:\n")
			for _, p := range limitStrings(req.Website.PainPoints, maxQuotesPerSection) {
				fmt.Fprintf(&b, "- %s\n", p)
			}
		}
		b.WriteString("\n")
	}

	if req.Amazon != nil && req.Amazon.Success && len(req.Amazon.Reviews) > 0 {
		b.WriteString("## Amazon reviews\n")
		writeReviews(&b, req.Amazon.Reviews)
		b.WriteString("\n")
	}

	if req.Reddit != nil && req.Reddit.Success {
		b.WriteString("## Reddit discussions\n")
		for _, p := range req.Reddit.Posts[:min(len(req.Reddit.Posts), maxQuotesPerSection)] {
			fmt.Fprintf(&b, "- [r/%s, %d points] %s — %s\n", p.Subreddit, p.Score, p.Title, truncate(p.Text, 300))
		}
		for _, c := range req.Reddit.Comments[:min(len(req.Reddit.Comments), maxQuotesPerSection)] {
			fmt.Fprintf(&b, "- [comment, %d points] %s\n", c.Score, truncate(c.Text, 300))
		}
		b.WriteString("\n")
	}

	if req.YouTube != nil && req.YouTube.Success {
		b.WriteString("## YouTube comments\n")
		for _, c := range req.YouTube.Comments[:min(len(req.YouTube.Comments), maxQuotesPerSection)] {
			fmt.Fprintf(&b, "- [%d likes] %s\n", c.Likes, truncate(c.Text, 300))
		}
		b.WriteString("\n")
	}

	if !hasAnySource(req) {
		b.WriteString("No customer voice data could be collected for this business. " +
			"Produce a best-effort persona from the website URL and keywords alone, " +
			"clearly marked as low confidence.\n")
	}

	return b.String()
}

func hasAnySource(req models.PersonaRequest) bool {
	return (req.Website != nil && req.Website.Success) ||
		(req.Amazon != nil && req.Amazon.Success && len(req.Amazon.Reviews) > 0) ||
		(req.Reddit != nil && req.Reddit.Success) ||
		(req.YouTube != nil && req.YouTube.Success)
}

func writeReviews(b *strings.Builder, reviews []models.Review) {
	for _, r := range reviews[:min(len(reviews), maxQuotesPerSection)] {
		if r.Rating > 0 {
			fmt.Fprintf(b, "- (%.1f stars) %s\n", r.Rating, truncate(r.Text, 300))
		} else {
			fmt.Fprintf(b, "- %s\n", truncate(r.Text, 300))
		}
	}
}

func limitStrings(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "…"
}
