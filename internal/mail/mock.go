package mail

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SentReport records one SendReport call on a MockMailer.
type SentReport struct {
	To      string
	JobID   uuid.UUID
	Persona string
}

// MockMailer satisfies Mailer for testing and records every send.
type MockMailer struct {
	mu   sync.Mutex
	Err  error
	sent []SentReport
}

func (m *MockMailer) SendReport(_ context.Context, to string, jobID uuid.UUID, persona string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentReport{To: to, JobID: jobID, Persona: persona})
	return nil
}

// Sent returns a copy of the recorded sends.
func (m *MockMailer) Sent() []SentReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentReport, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ Mailer = (*MockMailer)(nil)
