package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tutorhub/tutor-gateway/internal/metrics"
	"github.com/tutorhub/tutor-gateway/internal/ratelimit"
	"github.com/tutorhub/tutor-gateway/internal/session"
)

// Scheduler runs the periodic maintenance sweeps. Idle sessions and fully
// expired rate windows are removed so the per-user maps stay bounded.
type Scheduler struct {
	cron     *cron.Cron
	sessions *session.Store
	limiter  *ratelimit.Limiter
	idleTTL  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler with the sweep registered on the given cron spec
func New(sessions *session.Store, limiter *ratelimit.Limiter, idleTTL time.Duration, schedule string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		limiter:  limiter,
		idleTTL:  idleTTL,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep removes idle sessions and stale rate windows
func (s *Scheduler) Sweep() {
	sessions := s.sessions.Sweep(s.idleTTL)
	windows := s.limiter.Sweep()
	metrics.SweptSessions.Add(float64(sessions))
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	s.logger.Debug("maintenance sweep", "sessions_removed", sessions, "rate_windows_removed", windows)
}
