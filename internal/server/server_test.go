package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tutorhub/tutor-gateway/internal/cache"
	"github.com/tutorhub/tutor-gateway/internal/config"
	"github.com/tutorhub/tutor-gateway/internal/session"
)

func newTestServer(checks []Check) *Server {
	cfg := &config.Config{Server: config.ServerConfig{Host: "localhost", Port: 18700}}
	sessions := session.NewStore()
	sessions.SelectSubject("u1", "Math")
	replies := cache.New(8, time.Hour)
	replies.Store("m1", "a", "b", cache.SidePrimary)
	return New(cfg, checks, sessions, replies, map[string]bool{"telegram": true}, slog.Default())
}

func TestHealthAllUp(t *testing.T) {
	s := newTestServer([]Check{
		{Name: "provider", Probe: func() error { return nil }},
		{Name: "registry", Probe: func() error { return nil }},
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected ok, got %s", resp.Status)
	}
	if !resp.Services["provider"].Healthy {
		t.Error("Expected provider healthy")
	}
}

func TestHealthDegraded(t *testing.T) {
	s := newTestServer([]Check{
		{Name: "registry", Probe: func() error { return errors.New("connection refused") }},
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Expected degraded, got %s", resp.Status)
	}
	if resp.Services["registry"].Healthy {
		t.Error("Expected registry unhealthy")
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(nil)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.LiveSessions != 1 {
		t.Errorf("Expected 1 live session, got %d", resp.LiveSessions)
	}
	if resp.CachedReplies != 1 {
		t.Errorf("Expected 1 cached reply, got %d", resp.CachedReplies)
	}
	if !resp.Channels["telegram"] {
		t.Error("Expected telegram channel reported")
	}
}
