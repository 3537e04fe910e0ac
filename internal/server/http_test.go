package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/delivery"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
	"github.com/showheysas/tech0notta/internal/platform/platformtest"
	"github.com/showheysas/tech0notta/internal/roster"
)

type fixedState string

func (s fixedState) StateName() string { return string(s) }

func newTestServer(t *testing.T) (*HTTPServer, *roster.Roster, *platformtest.Fake) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	fake := platformtest.New()

	cfg := config.Default()
	session := &config.Session{JWTToken: "secret", MeetingNumber: "123", BotName: "Test Bot"}
	client := delivery.NewClient(delivery.Config{}, logger, m)
	rost := roster.New(fake, client, logger, m)
	buffers := audio.NewManager(audio.DefaultConfig(), client, rost, logger, m)
	t.Cleanup(buffers.Stop)

	h := NewHTTPServer(cfg.HTTP, logger, cfg, session, fixedState("in_meeting"), rost, buffers, client, m)
	return h, rost, fake
}

func get(t *testing.T, h *HTTPServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
}

func TestParticipantsEndpoint(t *testing.T) {
	h, rost, fake := newTestServer(t)
	fake.AddUser(platform.ParticipantInfo{ID: 10, Name: "Alice", IsHost: true})
	fake.AddUser(platform.ParticipantInfo{ID: 20, Name: "Bob"})
	rost.OnJoin([]uint32{10, 20})

	rec := get(t, h, "/participants")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		TotalParticipants int                  `json:"total_participants"`
		Participants      []roster.Participant `json:"participants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.TotalParticipants != 2 || len(body.Participants) != 2 {
		t.Errorf("expected 2 participants, got %+v", body)
	}
	if body.Participants[0].Name != "Alice" {
		t.Errorf("expected Alice first, got %q", body.Participants[0].Name)
	}
}

func TestParticipantDetailEndpoint(t *testing.T) {
	h, rost, fake := newTestServer(t)
	fake.AddUser(platform.ParticipantInfo{ID: 10, Name: "Alice"})
	rost.OnJoin([]uint32{10})

	rec := get(t, h, "/participants/10")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var p roster.Participant
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.ID != 10 || p.Name != "Alice" {
		t.Errorf("unexpected participant: %+v", p)
	}

	if rec := get(t, h, "/participants/999"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", rec.Code)
	}
	if rec := get(t, h, "/participants/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestConfigEndpointMasksCredential(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := get(t, h, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// The raw token must never appear in any response.
	if body := rec.Body.String(); strings.Contains(body, "secret") {
		t.Errorf("config response leaks the credential: %s", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := get(t, h, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	session, ok := body["session"].(map[string]interface{})
	if !ok || session["state"] != "in_meeting" {
		t.Errorf("expected session state in_meeting, got %v", body["session"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
