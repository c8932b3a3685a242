package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	ListStuckJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error)

	CreateResearchRequest(ctx context.Context, req *models.ResearchRequest) error
	GetResearchRequest(ctx context.Context, jobID uuid.UUID) (*models.ResearchRequest, error)
	UpdateResearchRequestStatus(ctx context.Context, jobID uuid.UUID, status string) error
	// MarkPersonaReportSent flips persona_report_sent and reports whether this
	// call won the flip. Exactly one caller across any number of retries gets
	// true; everyone else gets false.
	MarkPersonaReportSent(ctx context.Context, jobID uuid.UUID) (bool, error)

	UpsertJobData(ctx context.Context, entry *models.JobDataEntry) error
	GetJobData(ctx context.Context, jobID uuid.UUID, dataType string) (*models.JobDataEntry, error)
	ListJobData(ctx context.Context, jobID uuid.UUID) ([]*models.JobDataEntry, error)
}

// JobUpdateParams collects the optional fields an UpdateJobStatus call may
// set. Exported so fakes can evaluate options the same way the real store
// does.
type JobUpdateParams struct {
	ErrorMessage *string
	Progress     *int
}

type JobUpdateOption func(*JobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithProgress(pct int) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.Progress = &pct
	}
}
