package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

// NewGetPersonaHandler returns the handler for
// GET /api/v1/jobs/{jobID}/persona. While the job is still running the
// persona is null with a 200; 404 means the job id itself is unknown.
func NewGetPersonaHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := parseJobID(w, r)
		if !ok {
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

		body := map[string]any{
			"job_id":  jobID,
			"status":  models.NormalizeStatus(job.Status),
			"persona": nil,
		}

		entry, err := st.GetJobData(r.Context(), jobID, models.DataTypePersona)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load persona", nil)
			return
		}
		if entry != nil {
			var persona models.PersonaData
			if err := json.Unmarshal(entry.Payload, &persona); err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Corrupt persona payload", nil)
				return
			}
			body["persona"] = persona.Persona
			body["data_quality"] = persona.DataQuality
			body["generated_at"] = persona.GeneratedAt
		}

		response.JSON(w, body)
	}
}
