// Package worker holds the five stateless workers a persona-research run is
// made of: four data collectors and the persona generator. Each worker is a
// pure function of its job: it writes exactly one job_data entry and is safe
// to re-run (the write is an idempotent overwrite).
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
)

// Worker performs one task for a job. A vendor failure is recorded inside the
// payload as success:false and is NOT an error; the returned error means the
// result could not be persisted (or, for the persona worker, that generation
// itself failed).
type Worker interface {
	Name() string
	Run(ctx context.Context, job *models.Job) error
}

// writeEntry marshals a payload and upserts it under (jobID, dataType).
func writeEntry(ctx context.Context, st store.Store, jobID uuid.UUID, dataType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", dataType, err)
	}
	if err := st.UpsertJobData(ctx, &models.JobDataEntry{
		JobID:    jobID,
		DataType: dataType,
		Payload:  raw,
	}); err != nil {
		return fmt.Errorf("store %s payload: %w", dataType, err)
	}
	return nil
}

// splitKeywords turns the intake form's comma-separated keyword string into
// trimmed, non-empty phrases.
func splitKeywords(keywords string) []string {
	parts := strings.Split(keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// relevance scores how much of the keyword phrase appears in the text, as a
// token overlap ratio in [0, 1].
func relevance(text, keyword string) float64 {
	kwTokens := strings.Fields(strings.ToLower(keyword))
	if len(kwTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, tok := range kwTokens {
		if strings.Contains(lower, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(kwTokens))
}
