package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/services"
)

// SessionCleanupWorker periodically purges expired session rows and keeps
// the active session gauge current. Expired sessions are already rejected
// at authentication time; the worker only reclaims storage.
type SessionCleanupWorker struct {
	authService services.AuthService
	recorder    metrics.Recorder
	logger      *slog.Logger
	interval    time.Duration
}

func NewSessionCleanupWorker(authService services.AuthService, recorder metrics.Recorder, logger *slog.Logger, interval time.Duration) *SessionCleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &SessionCleanupWorker{
		authService: authService,
		recorder:    recorder,
		logger:      logger,
		interval:    interval,
	}
}

// Run blocks until ctx is cancelled, performing one cleanup pass per
// interval. The first pass runs immediately so the gauge is populated
// right after startup.
func (w *SessionCleanupWorker) Run(ctx context.Context) {
	w.logger.Info("Session cleanup worker started", "interval", w.interval.String())

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Session cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *SessionCleanupWorker) RunOnce(ctx context.Context) {
	start := time.Now()

	deleted, err := w.authService.CleanupExpired(ctx)
	if err != nil {
		w.logger.Error("Session cleanup failed", "error", err)
		return
	}

	w.logger.Info("Session cleanup completed",
		"deleted_count", deleted,
		"duration_ms", time.Since(start).Milliseconds())

	active, err := w.authService.CountActiveSessions(ctx)
	if err != nil {
		w.logger.Error("Active session count failed", "error", err)
		return
	}
	w.recorder.SetActiveSessions(active)
}
