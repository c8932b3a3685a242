package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/pkg/models"
	"github.com/personalens/personalens/pkg/quality"
)

// PersonaWorker synthesizes the persona report from whatever the data workers
// produced. It always re-reads the job_data table rather than taking worker
// results as arguments: the same code runs whether it was reached through the
// orchestrator or through a direct re-trigger of a single worker.
type PersonaWorker struct {
	store    store.Store
	provider models.PersonaProvider
	timeout  time.Duration
}

func NewPersonaWorker(st store.Store, provider models.PersonaProvider, timeout time.Duration) *PersonaWorker {
	return &PersonaWorker{store: st, provider: provider, timeout: timeout}
}

func (w *PersonaWorker) Name() string { return models.DataTypePersona }

func (w *PersonaWorker) Run(ctx context.Context, job *models.Job) error {
	req := models.PersonaRequest{
		WebsiteURL: job.WebsiteURL,
		Keywords:   job.TargetKeywords,
	}

	if err := w.loadInputs(ctx, job.ID, &req); err != nil {
		return err
	}
	req.Quality = assessQuality(req)

	genCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	result, err := w.provider.GeneratePersona(genCtx, req)
	if err != nil {
		// No entry is written on generation failure: the status API derives
		// hasPersona from entry presence.
		return fmt.Errorf("generate persona: %w", err)
	}

	return writeEntry(ctx, w.store, job.ID, models.DataTypePersona, models.PersonaData{
		Success:     true,
		Persona:     result.Persona,
		DataQuality: req.Quality,
		Provider:    w.provider.Name(),
		Model:       result.Model,
		GeneratedAt: time.Now().UTC(),
	})
}

// loadInputs populates the request from the job_data table. Absent entries are
// tolerated; a corrupt payload is not.
func (w *PersonaWorker) loadInputs(ctx context.Context, jobID uuid.UUID, req *models.PersonaRequest) error {
	if raw, ok, err := w.readEntry(ctx, jobID, models.DataTypeWebsite); err != nil {
		return err
	} else if ok {
		var data models.WebsiteData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode website payload: %w", err)
		}
		req.Website = &data
	}

	if raw, ok, err := w.readEntry(ctx, jobID, models.DataTypeAmazon); err != nil {
		return err
	} else if ok {
		var data models.AmazonData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode amazon payload: %w", err)
		}
		req.Amazon = &data
	}

	if raw, ok, err := w.readEntry(ctx, jobID, models.DataTypeReddit); err != nil {
		return err
	} else if ok {
		var data models.RedditData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode reddit payload: %w", err)
		}
		req.Reddit = &data
	}

	if raw, ok, err := w.readEntry(ctx, jobID, models.DataTypeYouTube); err != nil {
		return err
	} else if ok {
		var data models.YouTubeData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode youtube payload: %w", err)
		}
		req.YouTube = &data
	}

	return nil
}

func (w *PersonaWorker) readEntry(ctx context.Context, jobID uuid.UUID, dataType string) (json.RawMessage, bool, error) {
	entry, err := w.store.GetJobData(ctx, jobID, dataType)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s entry: %w", dataType, err)
	}
	return entry.Payload, true, nil
}

// assessQuality counts collected items and successful sources to pick the
// confidence tier for the report.
func assessQuality(req models.PersonaRequest) models.DataQuality {
	n := 0
	succeeded := 0
	var sources []string

	if req.Website != nil {
		n += len(req.Website.Reviews)
		if req.Website.Success {
			succeeded++
			sources = append(sources, "website")
		}
	}
	if req.Amazon != nil {
		n += len(req.Amazon.Reviews)
		if req.Amazon.Success {
			succeeded++
			sources = append(sources, "amazon")
		}
	}
	if req.Reddit != nil {
		n += len(req.Reddit.Posts) + len(req.Reddit.Comments)
		if req.Reddit.Success {
			succeeded++
			sources = append(sources, "reddit")
		}
	}
	if req.YouTube != nil {
		n += len(req.YouTube.Comments)
		if req.YouTube.Success {
			succeeded++
			sources = append(sources, "youtube")
		}
	}

	r := float64(succeeded) / float64(models.DataWorkerCount)
	return models.DataQuality{
		Tier:         quality.Classify(n, r),
		ReviewCount:  n,
		SuccessRatio: r,
		Sources:      sources,
	}
}

var _ Worker = (*PersonaWorker)(nil)
