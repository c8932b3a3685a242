package mail

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/personalens/personalens/internal/config"
)

func resendMailer(baseURL string) *ResendMailer {
	return NewResendMailer(config.MailConfig{
		ResendAPIKey: "re-test",
		BaseURL:      baseURL,
		From:         "PersonaLens <reports@personalens.app>",
		Timeout:      5 * time.Second,
	})
}

func TestSendReport_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer re-test" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var req resendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.To) != 1 || req.To[0] != "buyer@example.com" {
			t.Errorf("unexpected recipients: %v", req.To)
		}
		if req.Text != "# Persona" {
			t.Errorf("unexpected body: %s", req.Text)
		}
		w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer ts.Close()

	err := resendMailer(ts.URL).SendReport(t.Context(), "buyer@example.com", uuid.New(), "# Persona")
	if err != nil {
		t.Fatalf("SendReport: %v", err)
	}
}

func TestSendReport_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer ts.Close()

	err := resendMailer(ts.URL).SendReport(t.Context(), "buyer@example.com", uuid.New(), "report")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestSendReport_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	err := resendMailer(ts.URL).SendReport(t.Context(), "buyer@example.com", uuid.New(), "report")
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("expected ErrSendFailed, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}
