// Package mail dispatches the finished persona report to the purchaser.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/config"
)

var ErrSendFailed = errors.New("report email send failed")

// Mailer is the interface for sending persona reports. The caller is
// responsible for at-most-once semantics; implementations just send.
type Mailer interface {
	SendReport(ctx context.Context, to string, jobID uuid.UUID, persona string) error
}

// ResendMailer implements Mailer against the Resend HTTP API.
type ResendMailer struct {
	apiKey  string
	baseURL string
	from    string
	client  *http.Client
}

// NewResendMailer creates a new Resend client.
func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ResendMailer{
		apiKey:  cfg.ResendAPIKey,
		baseURL: cfg.BaseURL,
		from:    cfg.From,
		client:  &http.Client{Timeout: timeout},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (m *ResendMailer) SendReport(ctx context.Context, to string, jobID uuid.UUID, persona string) error {
	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Your customer persona report is ready",
		Text:    persona,
	})
	if err != nil {
		return fmt.Errorf("encoding resend request: %w", err)
	}

	u := fmt.Sprintf("%s/emails", m.baseURL)
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("building resend request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+m.apiKey)

			resp, err := m.client.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSendFailed, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
}

var _ Mailer = (*ResendMailer)(nil)
