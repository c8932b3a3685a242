// Package models contains shared data models used across the PersonaLens codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// legacyQueued survives in rows written before the status enums were unified.
const legacyQueued = "queued"

// NormalizeStatus maps legacy status strings onto the unified enum.
// Rows created by the old intake path used "queued" where the rest of the
// system says "pending".
func NormalizeStatus(s string) string {
	if s == legacyQueued {
		return JobStatusPending
	}
	return s
}

// Job is one end-to-end persona-research run. The API returns a job_id on
// POST /api/v1/jobs; the client polls GET /api/v1/jobs/{job_id}/status until
// status is completed or failed. Inputs are immutable after creation; only the
// orchestrator advances status.
type Job struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	WebsiteURL     string     `db:"website_url"     json:"website_url"`
	AmazonURL      *string    `db:"amazon_url"      json:"amazon_url,omitempty"`
	TargetKeywords string     `db:"target_keywords" json:"target_keywords"`
	Email          string     `db:"email"           json:"email"`
	CompetitorURLs []string   `db:"competitor_urls" json:"competitor_urls,omitempty"`
	Status         string     `db:"status"          json:"status"`
	Progress       *int       `db:"progress"        json:"progress,omitempty"`
	ErrorMessage   *string    `db:"error_message"   json:"error_message,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	CompletedAt    *time.Time `db:"completed_at"    json:"completed_at,omitempty"`
}
