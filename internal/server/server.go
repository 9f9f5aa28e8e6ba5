package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutorhub/tutor-gateway/internal/cache"
	"github.com/tutorhub/tutor-gateway/internal/config"
	"github.com/tutorhub/tutor-gateway/internal/session"
)

// Check is a named collaborator health probe
type Check struct {
	Name  string
	Probe func() error
}

// Server exposes the operational HTTP surface: health, status, metrics
type Server struct {
	cfg        *config.Config
	checks     []Check
	sessions   *session.Store
	replies    *cache.ReplyCache
	channels   map[string]bool
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ServiceHealth represents a collaborator health status
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// StatusResponse represents the full gateway status
type StatusResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	Channels      map[string]bool `json:"channels"`
	LiveSessions  int             `json:"live_sessions"`
	CachedReplies int             `json:"cached_replies"`
	Timestamp     string          `json:"timestamp"`
}

// New creates the ops server
func New(cfg *config.Config, checks []Check, sessions *session.Store, replies *cache.ReplyCache, channels map[string]bool, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		checks:    checks,
		sessions:  sessions,
		replies:   replies,
		channels:  channels,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Start begins listening; it blocks until the listener fails or is shut down
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	s.logger.Info("ops server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]ServiceHealth, len(s.checks))
	status := "ok"
	for _, c := range s.checks {
		if err := c.Probe(); err != nil {
			services[c.Name] = ServiceHealth{Healthy: false, Message: err.Error()}
			status = "degraded"
			continue
		}
		services[c.Name] = ServiceHealth{Healthy: true}
	}

	resp := HealthResponse{
		Status:    status,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Services:  services,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Channels:      s.channels,
		LiveSessions:  s.sessions.Len(),
		CachedReplies: s.replies.Len(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
