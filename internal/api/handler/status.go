package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/cache"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

// snapshotTTL bounds staleness of the cached status snapshot. The cache is a
// read-through mirror; the store stays authoritative.
const snapshotTTL = 5 * time.Second

// workerNames is the fixed reporting order for the status response.
var workerNames = []string{
	models.DataTypeWebsite,
	models.DataTypeAmazon,
	models.DataTypeReddit,
	models.DataTypeYouTube,
	models.DataTypePersona,
}

type workerStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type statusSummary struct {
	WorkersCompleted int                 `json:"workers_completed"`
	HasPersona       bool                `json:"has_persona"`
	Policy           string              `json:"policy"`
	DataQuality      *models.DataQuality `json:"data_quality,omitempty"`
}

type statusSnapshot struct {
	Job             *models.Job             `json:"job"`
	ResearchRequest *models.ResearchRequest `json:"research_request"`
	Workers         []workerStatus          `json:"workers"`
	Summary         statusSummary           `json:"summary"`
}

// NewJobStatusHandler returns the handler for GET /api/v1/jobs/{jobID}/status.
// A best-effort aggregate: either of Job/ResearchRequest may be absent and the
// response still renders; only an id no record knows about yields 404.
func NewJobStatusHandler(st store.Store, ca cache.Cache, dispatcher Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := parseJobID(w, r)
		if !ok {
			return
		}

		if raw, hit, err := ca.Get(r.Context(), cache.StatusSnapshotKey(jobID)); err == nil && hit {
			response.JSON(w, json.RawMessage(raw))
			return
		}

		snapshot, err := buildSnapshot(r, st, dispatcher.Policy(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Unknown job id", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job status", nil)
			return
		}

		if raw, err := json.Marshal(snapshot); err == nil {
			if err := ca.Set(r.Context(), cache.StatusSnapshotKey(jobID), raw, snapshotTTL); err != nil {
				slog.Debug("status snapshot cache write failed", "job_id", jobID, "error", err)
			}
		}

		response.JSON(w, snapshot)
	}
}

func buildSnapshot(r *http.Request, st store.Store, policy string, jobID uuid.UUID) (*statusSnapshot, error) {
	job, err := st.GetJob(r.Context(), jobID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	req, reqErr := st.GetResearchRequest(r.Context(), jobID)
	if reqErr != nil && !errors.Is(reqErr, store.ErrNotFound) {
		return nil, reqErr
	}
	if job == nil && req == nil {
		return nil, store.ErrNotFound
	}

	if job != nil {
		job.Status = models.NormalizeStatus(job.Status)
	}
	if req != nil {
		req.Status = models.NormalizeStatus(req.Status)
	}

	entries, err := st.ListJobData(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]*models.JobDataEntry, len(entries))
	for _, e := range entries {
		byType[e.DataType] = e
	}

	snapshot := &statusSnapshot{
		Job:             job,
		ResearchRequest: req,
		Summary:         statusSummary{Policy: policy},
	}

	// Worker completion is entry presence, not the job status string.
	for _, name := range workerNames {
		ws := workerStatus{Name: name, Status: models.JobStatusPending}
		if _, done := byType[name]; done {
			ws.Status = models.JobStatusCompleted
			if name != models.DataTypePersona {
				snapshot.Summary.WorkersCompleted++
			}
		}
		snapshot.Workers = append(snapshot.Workers, ws)
	}

	if entry, ok := byType[models.DataTypePersona]; ok {
		snapshot.Summary.HasPersona = true
		var persona models.PersonaData
		if err := json.Unmarshal(entry.Payload, &persona); err == nil {
			snapshot.Summary.DataQuality = &persona.DataQuality
		}
	}

	return snapshot, nil
}

// parseJobID pulls the jobID route parameter; a malformed id is a validation
// error, not a 404.
func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return jobID, true
}
