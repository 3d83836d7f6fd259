package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/target/batchwatch/internal/domain/model"
)

// TestingTB is the subset of testing.TB used by the helpers.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Errorf(format string, args ...any)
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
}

// PreferencesServer is an httptest server standing in for the preferences
// service. It answers every request with the configured status and body.
type PreferencesServer struct {
	*httptest.Server

	mu     sync.Mutex
	status int
	body   []byte
	auth   []string
}

// NewPreferencesServer starts a server returning prefs. The server is closed
// when the test finishes.
func NewPreferencesServer(t TestingTB, prefs ...model.JobPreference) *PreferencesServer {
	t.Helper()
	s := &PreferencesServer{status: http.StatusOK, body: PreferencesJSON(prefs...)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Respond replaces the canned response.
func (s *PreferencesServer) Respond(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// Requests returns how many requests were served.
func (s *PreferencesServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.auth)
}

// Authorization returns the Authorization header of each request in order.
func (s *PreferencesServer) Authorization() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *PreferencesServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Mail is one message captured by MailServer.
type Mail struct {
	Subject string
	To      []string
	CC      []string
	HTML    string
}

// MailServer is an httptest server accepting SendGrid v3 mail/send calls.
type MailServer struct {
	*httptest.Server

	mu     sync.Mutex
	status int
	mails  []Mail
}

// NewMailServer starts a SendGrid stand-in that accepts every message.
func NewMailServer(t TestingTB) *MailServer {
	t.Helper()
	s := &MailServer{status: http.StatusAccepted}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.serve(t, w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Fail makes subsequent sends answer with status.
func (s *MailServer) Fail(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Mails returns the captured messages in arrival order.
func (s *MailServer) Mails() []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mail(nil), s.mails...)
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridMessage struct {
	Subject          string `json:"subject"`
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
		CC []sendgridAddress `json:"cc"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (s *MailServer) serve(t TestingTB, w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/v3/mail/send") {
		http.NotFound(w, r)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read mail body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var msg sendgridMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Errorf("decode mail body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	captured := Mail{Subject: msg.Subject}
	for _, p := range msg.Personalizations {
		for _, a := range p.To {
			captured.To = append(captured.To, a.Email)
		}
		for _, a := range p.CC {
			captured.CC = append(captured.CC, a.Email)
		}
	}
	for _, c := range msg.Content {
		if c.Type == "text/html" {
			captured.HTML = c.Value
		}
	}

	s.mu.Lock()
	status := s.status
	if status >= 200 && status < 300 {
		s.mails = append(s.mails, captured)
	}
	s.mu.Unlock()

	w.WriteHeader(status)
}
