package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/personalens/personalens/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, website_url, amazon_url, target_keywords, email, competitor_urls, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.WebsiteURL, job.AmazonURL, job.TargetKeywords, job.Email,
		job.CompetitorURLs, job.Status, job.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, website_url, amazon_url, target_keywords, email, competitor_urls, status, progress, error_message, created_at, completed_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.WebsiteURL, &j.AmazonURL, &j.TargetKeywords, &j.Email,
		&j.CompetitorURLs, &j.Status, &j.Progress, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	j.Status = models.NormalizeStatus(j.Status)
	return &j, nil
}

// validTransitions encodes the unified job state machine. Retrying a
// processing job is idempotent, and a failed job may be requeued.
var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing},
	models.JobStatusProcessing: {models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusFailed},
	models.JobStatusFailed:     {models.JobStatusProcessing},
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &JobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	// Fetch current status
	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	currentStatus = models.NormalizeStatus(currentStatus)

	// Validate transition
	allowed := validTransitions[currentStatus]
	valid := false
	for _, a := range allowed {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid job status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2`
	args := []any{id, status}
	argIdx := 3

	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.Progress != nil {
		query += fmt.Sprintf(", progress = $%d", argIdx)
		args = append(args, *params.Progress)
		argIdx++
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStuckJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_url, amazon_url, target_keywords, email, competitor_urls, status, progress, error_message, created_at, completed_at
		 FROM jobs WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC`,
		models.JobStatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.WebsiteURL, &j.AmazonURL, &j.TargetKeywords, &j.Email,
			&j.CompetitorURLs, &j.Status, &j.Progress, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = models.NormalizeStatus(j.Status)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// --- Research Requests ---

func (s *PostgresStore) CreateResearchRequest(ctx context.Context, req *models.ResearchRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_requests (job_id, email, plan_id, amount_paid_cents, discount_code, persona_report_sent, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.JobID, req.Email, req.PlanID, req.AmountPaidCents, req.DiscountCode,
		req.PersonaReportSent, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create research request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResearchRequest(ctx context.Context, jobID uuid.UUID) (*models.ResearchRequest, error) {
	var r models.ResearchRequest
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, email, plan_id, amount_paid_cents, discount_code, persona_report_sent, status, created_at, updated_at
		 FROM research_requests WHERE job_id = $1`, jobID,
	).Scan(&r.JobID, &r.Email, &r.PlanID, &r.AmountPaidCents, &r.DiscountCode,
		&r.PersonaReportSent, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get research request: %w", err)
	}
	r.Status = models.NormalizeStatus(r.Status)
	return &r, nil
}

func (s *PostgresStore) UpdateResearchRequestStatus(ctx context.Context, jobID uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE research_requests SET status = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, status)
	if err != nil {
		return fmt.Errorf("update research request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkPersonaReportSent(ctx context.Context, jobID uuid.UUID) (bool, error) {
	// The conditional update serializes concurrent retries at the row: only
	// one caller ever sees RowsAffected == 1.
	tag, err := s.pool.Exec(ctx,
		`UPDATE research_requests SET persona_report_sent = TRUE, updated_at = NOW()
		 WHERE job_id = $1 AND persona_report_sent = FALSE`, jobID)
	if err != nil {
		return false, fmt.Errorf("mark persona report sent: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_requests WHERE job_id = $1)`, jobID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check research request: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// --- Job Data ---

func (s *PostgresStore) UpsertJobData(ctx context.Context, entry *models.JobDataEntry) error {
	// Single-row upsert keyed on (job_id, data_type): last write wins, and
	// concurrent re-runs of the same worker cannot interleave partial writes.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_data (job_id, data_type, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (job_id, data_type) DO UPDATE SET
		   payload = EXCLUDED.payload,
		   updated_at = NOW()`,
		entry.JobID, entry.DataType, entry.Payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert job data: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJobData(ctx context.Context, jobID uuid.UUID, dataType string) (*models.JobDataEntry, error) {
	var e models.JobDataEntry
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, data_type, payload, created_at, updated_at
		 FROM job_data WHERE job_id = $1 AND data_type = $2`, jobID, dataType,
	).Scan(&e.JobID, &e.DataType, &e.Payload, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job data: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListJobData(ctx context.Context, jobID uuid.UUID) ([]*models.JobDataEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, data_type, payload, created_at, updated_at
		 FROM job_data WHERE job_id = $1 ORDER BY data_type`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job data: %w", err)
	}
	defer rows.Close()

	var entries []*models.JobDataEntry
	for rows.Next() {
		var e models.JobDataEntry
		if err := rows.Scan(&e.JobID, &e.DataType, &e.Payload, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job data: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
