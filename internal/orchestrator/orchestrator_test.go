package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/mail"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/internal/worker"
	"github.com/personalens/personalens/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*models.Job
	requests map[uuid.UUID]*models.ResearchRequest
	entries  map[string]*models.JobDataEntry
}

func newMockStore() *mockStore {
	return &mockStore{
		jobs:     make(map[uuid.UUID]*models.Job),
		requests: make(map[uuid.UUID]*models.ResearchRequest),
		entries:  make(map[string]*models.JobDataEntry),
	}
}

var allowedTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing},
	models.JobStatusProcessing: {models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusFailed},
	models.JobStatusFailed:     {models.JobStatusProcessing},
}

func (s *mockStore) Ping(_ context.Context) error { return nil }

func (s *mockStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *mockStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *mockStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != status {
		allowed := false
		for _, next := range allowedTransitions[job.Status] {
			if next == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("invalid status transition %s -> %s", job.Status, status)
		}
	}
	job.Status = status
	params := &store.JobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.Progress != nil {
		job.Progress = params.Progress
	}
	return nil
}

func (s *mockStore) ListStuckJobs(_ context.Context, _ time.Duration) ([]*models.Job, error) {
	return nil, nil
}

func (s *mockStore) CreateResearchRequest(_ context.Context, req *models.ResearchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.JobID] = req
	return nil
}

func (s *mockStore) GetResearchRequest(_ context.Context, jobID uuid.UUID) (*models.ResearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return req, nil
}

func (s *mockStore) UpdateResearchRequestStatus(_ context.Context, jobID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[jobID]
	if !ok {
		return store.ErrNotFound
	}
	req.Status = status
	return nil
}

func (s *mockStore) MarkPersonaReportSent(_ context.Context, jobID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[jobID]
	if !ok {
		return false, store.ErrNotFound
	}
	if req.PersonaReportSent {
		return false, nil
	}
	req.PersonaReportSent = true
	return true, nil
}

func (s *mockStore) UpsertJobData(_ context.Context, entry *models.JobDataEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.JobID.String()+"/"+entry.DataType] = entry
	return nil
}

func (s *mockStore) GetJobData(_ context.Context, jobID uuid.UUID, dataType string) (*models.JobDataEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[jobID.String()+"/"+dataType]
	if !ok {
		return nil, store.ErrNotFound
	}
	return entry, nil
}

func (s *mockStore) ListJobData(_ context.Context, jobID uuid.UUID) ([]*models.JobDataEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.JobDataEntry
	for _, entry := range s.entries {
		if entry.JobID == jobID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *mockStore) jobStatus(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		return job.Status
	}
	return ""
}

func (s *mockStore) errorMessage(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok && job.ErrorMessage != nil {
		return *job.ErrorMessage
	}
	return ""
}

var _ store.Store = (*mockStore)(nil)

type mockCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
}

func newMockCache() *mockCache {
	return &mockCache{statuses: make(map[uuid.UUID]string)}
}

func (c *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *mockCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *mockCache) Ping(_ context.Context) error                                     { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

func (c *mockCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *mockCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

// stubWorker is a scriptable data worker.
type stubWorker struct {
	name  string
	run   func(ctx context.Context, job *models.Job) error
	mu    sync.Mutex
	calls int
}

func (w *stubWorker) Name() string { return w.name }

func (w *stubWorker) Run(ctx context.Context, job *models.Job) error {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.run != nil {
		return w.run(ctx, job)
	}
	return nil
}

func (w *stubWorker) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// personaStub writes a persona entry like the real persona worker would.
func personaStub(st store.Store) *stubWorker {
	return &stubWorker{
		name: models.DataTypePersona,
		run: func(ctx context.Context, job *models.Job) error {
			raw, _ := json.Marshal(models.PersonaData{Success: true, Persona: "generated persona"})
			return st.UpsertJobData(ctx, &models.JobDataEntry{
				JobID:    job.ID,
				DataType: models.DataTypePersona,
				Payload:  raw,
			})
		},
	}
}

func seedJob(t *testing.T, st *mockStore, email string) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:             uuid.New(),
		WebsiteURL:     "https://example.com",
		TargetKeywords: "standing desk",
		Email:          email,
		Status:         models.JobStatusPending,
	}
	if err := st.CreateJob(t.Context(), job); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateResearchRequest(t.Context(), &models.ResearchRequest{
		JobID:  job.ID,
		Email:  email,
		PlanID: "free",
		Status: models.JobStatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	return job
}

func waitTerminal(t *testing.T, st *mockStore, jobID uuid.UUID) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		status := st.jobStatus(jobID)
		if status == models.JobStatusCompleted || status == models.JobStatusFailed {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status (last: %s)", jobID, st.jobStatus(jobID))
	return ""
}

// --- tests ---

func TestStartRunsAllWorkersParallel(t *testing.T) {
	st := newMockStore()
	mailer := &mail.MockMailer{}
	job := seedJob(t, st, "owner@example.com")

	workers := []worker.Worker{
		&stubWorker{name: models.DataTypeWebsite},
		&stubWorker{name: models.DataTypeAmazon},
		&stubWorker{name: models.DataTypeReddit},
		&stubWorker{name: models.DataTypeYouTube},
	}
	o := New(st, newMockCache(), mailer, workers, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := waitTerminal(t, st, job.ID); status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", status)
	}
	for _, w := range workers {
		if w.(*stubWorker).callCount() != 1 {
			t.Errorf("worker %s ran %d times, want 1", w.Name(), w.(*stubWorker).callCount())
		}
	}

	req, err := st.GetResearchRequest(t.Context(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != models.JobStatusCompleted {
		t.Errorf("research request status = %s, want completed", req.Status)
	}

	sent := mailer.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %d emails, want 1", len(sent))
	}
	if sent[0].To != "owner@example.com" || sent[0].Persona != "generated persona" {
		t.Errorf("email = %+v", sent[0])
	}
}

func TestAllDataWorkersFailingStillCompletes(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "owner@example.com")

	failing := func(name string) worker.Worker {
		return &stubWorker{name: name, run: func(context.Context, *models.Job) error {
			return errors.New("store write failed")
		}}
	}
	workers := []worker.Worker{
		failing(models.DataTypeWebsite),
		failing(models.DataTypeAmazon),
		failing(models.DataTypeReddit),
		failing(models.DataTypeYouTube),
	}
	o := New(st, newMockCache(), &mail.MockMailer{}, workers, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := waitTerminal(t, st, job.ID); status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed even with 0/4 data workers", status)
	}
}

func TestPersonaFailureFailsJob(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "owner@example.com")
	mailer := &mail.MockMailer{}

	persona := &stubWorker{name: models.DataTypePersona, run: func(context.Context, *models.Job) error {
		return errors.New("model overloaded")
	}}
	o := New(st, newMockCache(), mailer, []worker.Worker{&stubWorker{name: models.DataTypeWebsite}}, persona, PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := waitTerminal(t, st, job.ID); status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", status)
	}
	if msg := st.errorMessage(job.ID); !strings.Contains(msg, "model overloaded") {
		t.Errorf("error_message = %q, want persona failure recorded", msg)
	}
	if len(mailer.Sent()) != 0 {
		t.Error("no email must be sent for a failed job")
	}

	req, _ := st.GetResearchRequest(t.Context(), job.ID)
	if req.Status != models.JobStatusFailed {
		t.Errorf("research request status = %s, want failed", req.Status)
	}
}

func TestReportSentAtMostOnce(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "owner@example.com")
	mailer := &mail.MockMailer{}

	o := New(st, newMockCache(), mailer, []worker.Worker{&stubWorker{name: models.DataTypeWebsite}}, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitTerminal(t, st, job.ID)

	// The terminal status is completed, so a requeue is rejected by the
	// transition rules; drive the send path directly instead.
	loaded, err := st.GetJob(t.Context(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	o.maybeSendReport(t.Context(), loaded)
	o.maybeSendReport(t.Context(), loaded)

	if got := len(mailer.Sent()); got != 1 {
		t.Errorf("got %d emails, want exactly 1", got)
	}
}

func TestNoEmailNoReport(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "")
	mailer := &mail.MockMailer{}

	o := New(st, newMockCache(), mailer, nil, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitTerminal(t, st, job.ID)
	if len(mailer.Sent()) != 0 {
		t.Error("job without an email must not send a report")
	}
}

func TestSequentialPolicyRunsInOrder(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "owner@example.com")

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) worker.Worker {
		return &stubWorker{name: name, run: func(context.Context, *models.Job) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}}
	}
	workers := []worker.Worker{
		record(models.DataTypeWebsite),
		record(models.DataTypeAmazon),
		record(models.DataTypeReddit),
		record(models.DataTypeYouTube),
	}
	o := New(st, newMockCache(), &mail.MockMailer{}, workers, personaStub(st), PolicySequential, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitTerminal(t, st, job.ID)

	mu.Lock()
	defer mu.Unlock()
	want := []string{models.DataTypeWebsite, models.DataTypeAmazon, models.DataTypeReddit, models.DataTypeYouTube}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestWorkerPanicIsContained(t *testing.T) {
	st := newMockStore()
	job := seedJob(t, st, "owner@example.com")

	panicking := &stubWorker{name: models.DataTypeWebsite, run: func(context.Context, *models.Job) error {
		panic("nil map write")
	}}
	o := New(st, newMockCache(), &mail.MockMailer{}, []worker.Worker{panicking}, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Start(t.Context(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := waitTerminal(t, st, job.ID); status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed despite worker panic", status)
	}
}

func TestRequeueTransitions(t *testing.T) {
	st := newMockStore()
	mailer := &mail.MockMailer{}

	failed := seedJob(t, st, "")
	failed.Status = models.JobStatusFailed

	completed := seedJob(t, st, "")
	completed.Status = models.JobStatusCompleted

	o := New(st, newMockCache(), mailer, nil, personaStub(st), PolicyParallel, time.Minute)

	if err := o.Requeue(t.Context(), failed.ID); err != nil {
		t.Errorf("requeue of failed job: %v", err)
	}
	waitTerminal(t, st, failed.ID)

	if err := o.Requeue(t.Context(), completed.ID); err == nil {
		t.Error("requeue of completed job must be rejected")
	}

	if err := o.Requeue(t.Context(), uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("requeue of unknown job = %v, want ErrNotFound", err)
	}
}

func TestStartUnknownJob(t *testing.T) {
	o := New(newMockStore(), newMockCache(), &mail.MockMailer{}, nil, nil, PolicyParallel, time.Minute)
	if err := o.Start(t.Context(), uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Start = %v, want ErrNotFound", err)
	}
}

func TestDefaultPolicyIsParallel(t *testing.T) {
	o := New(newMockStore(), newMockCache(), &mail.MockMailer{}, nil, nil, Policy("bogus"), time.Minute)
	if o.Policy() != string(PolicyParallel) {
		t.Errorf("policy = %s, want parallel", o.Policy())
	}
}
