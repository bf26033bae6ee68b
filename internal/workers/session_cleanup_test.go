package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/services"
)

type stubAuthService struct {
	mu           sync.Mutex
	cleanupCalls int
	countCalls   int
	deleted      int64
	active       int64
	cleanupErr   error
	countErr     error
}

func (s *stubAuthService) Login(ctx context.Context, req *services.LoginRequest, userAgent, clientIP string) (*services.LoginResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error { return nil }

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, req *services.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, *models.Session, error) {
	return nil, nil, errors.New("not implemented")
}

func (s *stubAuthService) ListSessions(ctx context.Context, userID, currentSessionID string) (*services.SessionListResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) RevokeSession(ctx context.Context, sessionID, userID string) error {
	return nil
}

func (s *stubAuthService) CleanupExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupCalls++
	return s.deleted, s.cleanupErr
}

func (s *stubAuthService) CountActiveSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	return s.active, s.countErr
}

func (s *stubAuthService) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupCalls, s.countCalls
}

type gaugeRecorder struct {
	metrics.NopRecorder

	mu     sync.Mutex
	values []int64
}

func (r *gaugeRecorder) SetActiveSessions(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, count)
}

func (r *gaugeRecorder) last() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0, false
	}
	return r.values[len(r.values)-1], true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionCleanupRunOnce(t *testing.T) {
	t.Run("UpdatesGauge", func(t *testing.T) {
		auth := &stubAuthService{deleted: 3, active: 17}
		recorder := &gaugeRecorder{}
		worker := NewSessionCleanupWorker(auth, recorder, testLogger(), time.Hour)

		worker.RunOnce(context.Background())

		cleanups, counts := auth.calls()
		if cleanups != 1 || counts != 1 {
			t.Fatalf("expected one cleanup and one count call, got %d and %d", cleanups, counts)
		}
		if v, ok := recorder.last(); !ok || v != 17 {
			t.Errorf("expected gauge set to 17, got %d (set=%v)", v, ok)
		}
	})

	t.Run("CleanupErrorSkipsGauge", func(t *testing.T) {
		auth := &stubAuthService{cleanupErr: errors.New("db down")}
		recorder := &gaugeRecorder{}
		worker := NewSessionCleanupWorker(auth, recorder, testLogger(), time.Hour)

		worker.RunOnce(context.Background())

		_, counts := auth.calls()
		if counts != 0 {
			t.Errorf("expected no count call after cleanup failure, got %d", counts)
		}
		if _, ok := recorder.last(); ok {
			t.Error("gauge should not be touched when cleanup fails")
		}
	})

	t.Run("CountErrorSkipsGauge", func(t *testing.T) {
		auth := &stubAuthService{countErr: errors.New("db down")}
		recorder := &gaugeRecorder{}
		worker := NewSessionCleanupWorker(auth, recorder, testLogger(), time.Hour)

		worker.RunOnce(context.Background())

		if _, ok := recorder.last(); ok {
			t.Error("gauge should not be touched when counting fails")
		}
	})
}

func TestSessionCleanupRun(t *testing.T) {
	auth := &stubAuthService{active: 2}
	recorder := &gaugeRecorder{}
	worker := NewSessionCleanupWorker(auth, recorder, testLogger(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// The immediate pass plus at least one tick.
	deadline := time.After(2 * time.Second)
	for {
		if cleanups, _ := auth.calls(); cleanups >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never completed two passes")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestNewSessionCleanupWorkerDefaults(t *testing.T) {
	worker := NewSessionCleanupWorker(&stubAuthService{}, nil, testLogger(), 0)
	if worker.interval != time.Hour {
		t.Errorf("expected default interval of 1h, got %s", worker.interval)
	}
	if worker.recorder == nil {
		t.Error("nil recorder should be replaced with a no-op")
	}
}
