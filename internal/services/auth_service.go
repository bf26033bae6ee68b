package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	tokens    *auth.TokenManager
	cfg       config.AuthConfig
	publisher events.EventPublisher
	recorder  metrics.Recorder
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, tokens *auth.TokenManager, cfg config.AuthConfig, publisher events.EventPublisher, recorder metrics.Recorder) AuthService {
	return &authService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		tokens:    tokens,
		cfg:       cfg,
		publisher: publisher,
		recorder:  recorder,
	}
}

// ===== CREDENTIAL OPERATIONS =====

func (s *authService) Login(ctx context.Context, req *LoginRequest, userAgent, clientIP string) (*LoginResponse, error) {
	s.logger.Info("Logging in user", "email", req.Email)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Unknown email and wrong password report the same error to the client.
	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.recorder.RecordLoginAttempt(false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !user.Active {
		s.recorder.RecordLoginAttempt(false)
		return nil, ErrUserInactive
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.recorder.RecordLoginAttempt(false)
		return nil, ErrInvalidCredentials
	}

	// Create session with the absolute ceiling fixed at creation
	now := time.Now()
	session := &models.Session{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.cfg.SessionAbsoluteTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if clientIP != "" {
		session.ClientIP = &clientIP
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user, session.ID)
	if err != nil {
		if delErr := s.repo.Session().Delete(ctx, session.ID); delErr != nil {
			s.logger.Error("Failed to delete session after token failure", "session_id", session.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.recorder.RecordLoginAttempt(true)
	s.logger.Info("User logged in successfully", "user_id", user.ID, "session_id", session.ID)

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		// Logging out an already-gone session is not an error.
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.repo.Session().Delete(ctx, session.ID); err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.publishSessionRevoked(ctx, session, "logout")
	s.logger.Info("User logged out", "user_id", session.UserID, "session_id", session.ID)

	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	s.logger.Info("Changing password", "user_id", userID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.repo.User().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("Password changed successfully", "user_id", userID)
	return nil
}

// ===== SESSION VALIDATION =====

// ValidateSession enforces both expiry rules. An expired session is deleted on
// sight so the next lookup misses, and the revocation is published. Activity
// updates only LastActivityAt; the absolute ceiling never moves.
func (s *authService) ValidateSession(ctx context.Context, sessionID string) (*models.User, *models.Session, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	now := time.Now()
	if session.Expired(now, s.cfg.SessionIdleTimeout) {
		if err := s.repo.Session().Delete(ctx, session.ID); err != nil && !repositories.IsNotFoundError(err) {
			s.logger.Error("Failed to delete expired session", "session_id", session.ID, "error", err)
		}
		s.publishSessionRevoked(ctx, session, "expired")
		return nil, nil, ErrSessionExpired
	}

	// Touch is best effort; a failed activity write must not block the request.
	if err := s.repo.Session().Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("Failed to touch session", "session_id", session.ID, "error", err)
	} else {
		session.LastActivityAt = now
	}

	user, err := s.repo.User().GetByID(ctx, session.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session user: %w", err)
	}

	// Deactivation deletes sessions, but a request can race it. Fail closed.
	if !user.Active {
		if err := s.repo.Session().Delete(ctx, session.ID); err != nil && !repositories.IsNotFoundError(err) {
			s.logger.Error("Failed to delete session of inactive user", "session_id", session.ID, "error", err)
		}
		s.publishSessionRevoked(ctx, session, "revoked")
		return nil, nil, ErrUserInactive
	}

	return user, session, nil
}

// ===== SESSION MANAGEMENT =====

func (s *authService) ListSessions(ctx context.Context, userID, currentSessionID string) (*SessionListResponse, error) {
	sessions, err := s.repo.Session().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	// Rows past either expiry are invisible here; the cleanup worker removes them.
	now := time.Now()
	response := &SessionListResponse{
		Sessions: make([]*SessionResponse, 0, len(sessions)),
	}
	for _, session := range sessions {
		if session.Expired(now, s.cfg.SessionIdleTimeout) {
			continue
		}
		response.Sessions = append(response.Sessions, &SessionResponse{
			Session:       session,
			Current:       session.ID == currentSessionID,
			IdleExpiresAt: session.IdleDeadline(s.cfg.SessionIdleTimeout),
		})
	}
	response.Total = len(response.Sessions)

	return response, nil
}

func (s *authService) RevokeSession(ctx context.Context, sessionID, userID string) error {
	s.logger.Info("Revoking session", "session_id", sessionID, "user_id", userID)

	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session.UserID != userID {
		return NewPermissionError(userID, sessionID, "session", "revoke", "session belongs to another user")
	}

	if err := s.repo.Session().Delete(ctx, session.ID); err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.publishSessionRevoked(ctx, session, "revoked")
	s.logger.Info("Session revoked successfully", "session_id", sessionID)

	return nil
}

// ===== MAINTENANCE OPERATIONS =====

func (s *authService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.Session().DeleteExpired(ctx, time.Now(), s.cfg.SessionIdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return deleted, nil
}

func (s *authService) CountActiveSessions(ctx context.Context) (int64, error) {
	count, err := s.repo.Session().CountActive(ctx, time.Now(), s.cfg.SessionIdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return count, nil
}

// ===== HELPER METHODS =====

func (s *authService) publishSessionRevoked(ctx context.Context, session *models.Session, reason string) {
	s.recorder.RecordSessionRevoked(reason)

	err := s.publisher.Publish(ctx, events.EventSessionRevoked, events.SessionRevokedEvent{
		SessionID: session.ID,
		UserID:    session.UserID,
		Reason:    reason,
	})
	if err != nil {
		s.logger.Error("Failed to publish session revoked event", "session_id", session.ID, "error", err)
	}
}
