package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

const defaultStuckAfter = 30 * time.Minute

// NewListStuckJobsHandler returns the handler for
// GET /api/v1/admin/jobs/stuck?older_than=30m. A stuck job is one still
// processing past the cutoff, usually because the process died mid-run.
func NewListStuckJobsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		olderThan := defaultStuckAfter
		if raw := r.URL.Query().Get("older_than"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"older_than must be a positive duration like 30m", nil)
				return
			}
			olderThan = d
		}

		jobs, err := st.ListStuckJobs(r.Context(), olderThan)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list stuck jobs", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}

		response.JSON(w, map[string]any{
			"jobs":  jobs,
			"count": len(jobs),
		})
	}
}

// NewRequeueJobHandler returns the handler for
// POST /api/v1/admin/jobs/{jobID}/requeue.
func NewRequeueJobHandler(dispatcher Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := parseJobID(w, r)
		if !ok {
			return
		}

		if err := dispatcher.Requeue(r.Context(), jobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Unknown job id", nil)
				return
			}
			// A completed job refuses the transition back to processing.
			response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
			return
		}

		response.Accepted(w, map[string]any{
			"job_id": jobID,
			"status": models.JobStatusProcessing,
		})
	}
}
