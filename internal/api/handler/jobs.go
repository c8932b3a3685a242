// Package handler contains the HTTP handlers. Each handler depends on a
// narrow interface so tests can script the service side without a database.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

const maxCompetitorURLs = 5

// Dispatcher starts and requeues jobs. Implemented by the orchestrator.
type Dispatcher interface {
	Start(ctx context.Context, jobID uuid.UUID) error
	Requeue(ctx context.Context, jobID uuid.UUID) error
	Policy() string
}

// NewCreateJobHandler returns the handler for POST /api/v1/jobs. It validates
// the intake form, persists the Job and its ResearchRequest, and starts the
// pipeline. Invalid input never reaches the pipeline.
func NewCreateJobHandler(st store.Store, dispatcher Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			WebsiteURL     string   `json:"website_url"`
			AmazonURL      string   `json:"amazon_url"`
			Keywords       string   `json:"keywords"`
			Email          string   `json:"email"`
			CompetitorURLs []string `json:"competitor_urls"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if details := validateIntake(req.WebsiteURL, req.Keywords, req.Email, req.CompetitorURLs); len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid intake parameters", details)
			return
		}

		job := &models.Job{
			ID:             uuid.New(),
			WebsiteURL:     strings.TrimSpace(req.WebsiteURL),
			TargetKeywords: strings.TrimSpace(req.Keywords),
			Email:          strings.TrimSpace(req.Email),
			CompetitorURLs: req.CompetitorURLs,
			Status:         models.JobStatusPending,
			CreatedAt:      time.Now().UTC(),
		}
		if u := strings.TrimSpace(req.AmazonURL); u != "" {
			job.AmazonURL = &u
		}

		if err := st.CreateJob(r.Context(), job); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
			return
		}

		if err := st.CreateResearchRequest(r.Context(), &models.ResearchRequest{
			JobID:     job.ID,
			Email:     job.Email,
			PlanID:    "free",
			Status:    models.JobStatusPending,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.CreatedAt,
		}); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create research request", nil)
			return
		}

		if err := dispatcher.Start(r.Context(), job.ID); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start research", nil)
			return
		}

		response.Created(w, map[string]any{
			"job_id": job.ID,
			"status": models.JobStatusProcessing,
		})
	}
}

// validateIntake returns per-field validation messages, empty when valid.
func validateIntake(websiteURL, keywords, email string, competitorURLs []string) map[string][]string {
	details := map[string][]string{}

	if !isHTTPURL(websiteURL) {
		details["website_url"] = append(details["website_url"],
			"website_url must be a valid http(s) URL")
	}
	if strings.TrimSpace(keywords) == "" {
		details["keywords"] = append(details["keywords"], "keywords is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		details["email"] = append(details["email"], "email must be a valid address")
	}
	if len(competitorURLs) > maxCompetitorURLs {
		details["competitor_urls"] = append(details["competitor_urls"],
			"at most 5 competitor URLs are accepted")
	}
	for _, u := range competitorURLs {
		if !isHTTPURL(u) {
			details["competitor_urls"] = append(details["competitor_urls"],
				"competitor URLs must be valid http(s) URLs")
			break
		}
	}

	return details
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
