// Package orchestrator drives a persona-research job from intake to its
// terminal status: it fans the data workers out under the configured policy,
// always attempts persona generation, and dispatches the report email at most
// once.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/cache"
	"github.com/personalens/personalens/internal/mail"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/internal/worker"
	"github.com/personalens/personalens/pkg/models"
)

// Policy selects how the data workers are dispatched. Worker semantics are
// identical under both; only scheduling differs.
type Policy string

const (
	PolicyParallel   Policy = "parallel"
	PolicySequential Policy = "sequential"
)

// statusTTL bounds how long a Redis status mirror outlives its last write.
const statusTTL = 30 * time.Minute

// Orchestrator runs jobs end to end. Start returns as soon as the job row is
// marked processing; the pipeline itself runs in a background goroutine that
// always drives the row to completed or failed.
type Orchestrator struct {
	store         store.Store
	cache         cache.Cache
	mailer        mail.Mailer
	dataWorkers   []worker.Worker
	personaWorker worker.Worker
	policy        Policy
	workerTimeout time.Duration
}

func New(st store.Store, ca cache.Cache, mailer mail.Mailer, dataWorkers []worker.Worker, personaWorker worker.Worker, policy Policy, workerTimeout time.Duration) *Orchestrator {
	if policy != PolicySequential {
		policy = PolicyParallel
	}
	return &Orchestrator{
		store:         st,
		cache:         ca,
		mailer:        mailer,
		dataWorkers:   dataWorkers,
		personaWorker: personaWorker,
		policy:        policy,
		workerTimeout: workerTimeout,
	}
}

// Policy reports the active dispatch policy for the status API.
func (o *Orchestrator) Policy() string { return string(o.policy) }

// Start transitions the job to processing and dispatches the pipeline in the
// background. The store rejects illegal transitions, so a completed job can
// never re-enter the pipeline.
func (o *Orchestrator) Start(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}

	if err := o.store.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing); err != nil {
		return fmt.Errorf("marking job processing: %w", err)
	}
	_ = o.cache.SetJobStatus(ctx, jobID, models.JobStatusProcessing, statusTTL)
	o.setRequestStatus(ctx, jobID, models.JobStatusProcessing)

	go o.run(job)

	return nil
}

// Requeue re-runs a failed or stuck job through the same path as Start.
func (o *Orchestrator) Requeue(ctx context.Context, jobID uuid.UUID) error {
	return o.Start(ctx, jobID)
}

// run executes the pipeline. It recovers from panics and always marks the job
// terminal.
func (o *Orchestrator) run(job *models.Job) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in orchestrator run", "job_id", job.ID, "panic", r)
			o.finish(ctx, job, models.JobStatusFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	failures := o.collect(ctx, job)
	for _, f := range failures {
		slog.Warn("data worker failed", "job_id", job.ID, "error", f)
	}
	_ = o.store.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing,
		store.WithProgress(80))

	// Persona generation runs even with zero usable sources; the report just
	// carries a very_low confidence tier.
	if err := o.runWorker(ctx, o.personaWorker, job); err != nil {
		failures = append(failures, fmt.Sprintf("%s: %v", o.personaWorker.Name(), err))
		o.finish(ctx, job, models.JobStatusFailed, strings.Join(failures, "; "))
		return
	}

	o.finish(ctx, job, models.JobStatusCompleted, strings.Join(failures, "; "))
	o.maybeSendReport(ctx, job)
}

// collect runs the data workers under the configured policy and returns the
// accumulated worker errors. Worker errors are non-fatal: siblings proceed and
// persona generation still runs.
func (o *Orchestrator) collect(ctx context.Context, job *models.Job) []string {
	if o.policy == PolicySequential {
		var failures []string
		for _, w := range o.dataWorkers {
			if err := o.runWorker(ctx, w, job); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", w.Name(), err))
			}
		}
		return failures
	}

	var (
		mu       sync.Mutex
		failures []string
		wg       sync.WaitGroup
	)
	for _, w := range o.dataWorkers {
		wg.Add(1)
		go func(w worker.Worker) {
			defer wg.Done()
			if err := o.runWorker(ctx, w, job); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", w.Name(), err))
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return failures
}

// runWorker applies the per-worker timeout and converts a panic into an error
// so one worker can never take down the run.
func (o *Orchestrator) runWorker(ctx context.Context, w worker.Worker, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in worker", "worker", w.Name(), "job_id", job.ID, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	runCtx := ctx
	if o.workerTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.workerTimeout)
		defer cancel()
	}
	return w.Run(runCtx, job)
}

// finish drives the job row terminal and mirrors the result to the cache and
// the research request record.
func (o *Orchestrator) finish(ctx context.Context, job *models.Job, status, errMsg string) {
	opts := []store.JobUpdateOption{}
	if errMsg != "" {
		opts = append(opts, store.WithErrorMessage(errMsg))
	}
	if status == models.JobStatusCompleted {
		opts = append(opts, store.WithProgress(100))
	}
	if err := o.store.UpdateJobStatus(ctx, job.ID, status, opts...); err != nil {
		slog.Error("failed to mark job terminal", "job_id", job.ID, "status", status, "error", err)
	}
	_ = o.cache.SetJobStatus(ctx, job.ID, status, statusTTL)
	o.setRequestStatus(ctx, job.ID, status)
}

// setRequestStatus keeps the research request record in step with the job.
// A job without one (legacy rows) is fine.
func (o *Orchestrator) setRequestStatus(ctx context.Context, jobID uuid.UUID, status string) {
	if err := o.store.UpdateResearchRequestStatus(ctx, jobID, status); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("failed to update research request status", "job_id", jobID, "error", err)
	}
}

// maybeSendReport emails the persona report at most once per job. The
// conditional update in MarkPersonaReportSent decides the winner; losing the
// race is the expected outcome on every re-run after the first.
func (o *Orchestrator) maybeSendReport(ctx context.Context, job *models.Job) {
	if job.Email == "" {
		return
	}

	entry, err := o.store.GetJobData(ctx, job.ID, models.DataTypePersona)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Error("failed to load persona for report", "job_id", job.ID, "error", err)
		return
	}
	var persona models.PersonaData
	if err := json.Unmarshal(entry.Payload, &persona); err != nil {
		slog.Error("corrupt persona payload", "job_id", job.ID, "error", err)
		return
	}

	won, err := o.store.MarkPersonaReportSent(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to claim report send", "job_id", job.ID, "error", err)
		}
		return
	}
	if !won {
		return
	}

	if err := o.mailer.SendReport(ctx, job.Email, job.ID, persona.Persona); err != nil {
		slog.Error("report email failed", "job_id", job.ID, "error", err)
		return
	}
	slog.Info("persona report sent", "job_id", job.ID, "to", job.Email)
}
