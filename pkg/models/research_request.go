package models

import (
	"time"

	"github.com/google/uuid"
)

// ResearchRequest is the commercial side of a job, created by the intake (or
// payment webhook) path and correlated 1:1 with a Job by job_id. The
// PersonaReportSent flag flips once when the report email is dispatched and
// never resets; it is the idempotency guard for the send step.
type ResearchRequest struct {
	JobID             uuid.UUID `db:"job_id"              json:"job_id"`
	Email             string    `db:"email"               json:"email"`
	PlanID            string    `db:"plan_id"             json:"plan_id"`
	AmountPaidCents   int       `db:"amount_paid_cents"   json:"amount_paid_cents"`
	DiscountCode      *string   `db:"discount_code"       json:"discount_code,omitempty"`
	PersonaReportSent bool      `db:"persona_report_sent" json:"persona_report_sent"`
	Status            string    `db:"status"              json:"status"`
	CreatedAt         time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"          json:"updated_at"`
}
