package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/internal/worker"
)

// NewTriggerWorkerHandler returns the handler for POST /api/v1/workers/{name}.
// It re-invokes a single worker against an existing job; the worker's upsert
// makes the re-run an idempotent overwrite. The run is dispatched in the
// background and acknowledged with 202.
func NewTriggerWorkerHandler(st store.Store, workers map[string]worker.Worker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		wk, ok := workers[name]
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("unknown worker %q", name), nil)
			return
		}

		var req struct {
			JobID string `json:"job_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job_id must be a valid UUID", nil)
			return
		}

		job, err := st.GetJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Unknown job id", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic in triggered worker", "worker", name, "job_id", jobID, "panic", rec)
				}
			}()
			if err := wk.Run(context.Background(), job); err != nil {
				slog.Error("triggered worker failed", "worker", name, "job_id", jobID, "error", err)
			}
		}()

		response.Accepted(w, map[string]any{
			"worker": name,
			"job_id": jobID,
		})
	}
}
