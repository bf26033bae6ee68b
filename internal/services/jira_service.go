package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/reviewloop/review-service/internal/jira"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

const defaultHistoryMonths = 12

type jiraService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	client    *jira.Client
}

func NewJiraService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, client *jira.Client) JiraService {
	return &jiraService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		client:    client,
	}
}

// ===== SYNC =====

func (s *jiraService) Sync(ctx context.Context, req *SyncJiraRequest, requesterID string) (*JiraSyncResult, error) {
	s.logger.Info("Starting Jira sync", "period", req.Period, "requester_id", requesterID)

	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, NewPermissionError(requesterID, req.Period, "jira_stats", "sync", "only admins can trigger a sync")
	}

	if s.client == nil || !s.client.Enabled() {
		return nil, ErrJiraNotConfigured
	}

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	from, last, err := periodWindow(req.Period)
	if err != nil {
		return nil, err
	}
	// The Jira search window is half-open on the right
	to := last.AddDate(0, 0, 1)

	users, err := s.resolveTargets(ctx, req.UserIDs)
	if err != nil {
		return nil, err
	}

	result := &JiraSyncResult{Period: req.Period}
	now := time.Now()

	for _, user := range users {
		if user.JiraUsername == nil || *user.JiraUsername == "" {
			result.Skipped++
			continue
		}

		stats, err := s.client.FetchUserStats(ctx, *user.JiraUsername, from, to)
		if err != nil {
			s.logger.Warn("Jira fetch failed", "user_id", user.ID, "jira_username", *user.JiraUsername, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.Email, err))
			continue
		}

		stat := &models.JiraUserStat{
			UserID:           user.ID,
			Period:           req.Period,
			IssuesCreated:    stats.Created,
			IssuesResolved:   stats.Resolved,
			IssuesInProgress: stats.InProgress,
			StoryPoints:      stats.StoryPoints,
			RawPayload:       datatypes.JSON(stats.Raw),
			SyncedAt:         now,
		}

		if err := s.repo.JiraStat().Upsert(ctx, stat); err != nil {
			s.logger.Error("Failed to store Jira stats", "user_id", user.ID, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.Email, err))
			continue
		}

		result.Synced++
	}

	s.logger.Info("Jira sync finished",
		"period", req.Period,
		"synced", result.Synced,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

// resolveTargets returns the users to sync. An explicit ID list wins;
// otherwise every active user is considered.
func (s *jiraService) resolveTargets(ctx context.Context, userIDs []string) ([]*models.User, error) {
	if len(userIDs) > 0 {
		users, err := s.repo.User().GetByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		return users, nil
	}

	active := true
	filters := repositories.UserFilters{Active: &active, Limit: 200}

	var all []*models.User
	for {
		users, _, err := s.repo.User().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		all = append(all, users...)
		if len(users) < filters.Limit {
			return all, nil
		}
		filters.Offset += filters.Limit
	}
}

// ===== QUERIES =====

func (s *jiraService) GetStats(ctx context.Context, userID, period, requesterID string) (*models.JiraUserStat, error) {
	if err := s.authorizeRead(ctx, userID, requesterID); err != nil {
		return nil, err
	}

	if _, _, err := periodWindow(period); err != nil {
		return nil, err
	}

	stat, err := s.repo.JiraStat().GetByUserAndPeriod(ctx, userID, period)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrJiraStatsNotFound
		}
		return nil, fmt.Errorf("failed to get Jira stats: %w", err)
	}

	return stat, nil
}

func (s *jiraService) GetHistory(ctx context.Context, userID string, limit int, requesterID string) ([]*models.JiraUserStat, error) {
	if err := s.authorizeRead(ctx, userID, requesterID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryMonths
	}

	stats, err := s.repo.JiraStat().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list Jira stats: %w", err)
	}

	return stats, nil
}

// ===== HELPER METHODS =====

func (s *jiraService) authorizeRead(ctx context.Context, userID, requesterID string) error {
	if userID == requesterID {
		return nil
	}

	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return err
	}
	if role == models.RoleAdmin {
		return nil
	}

	target, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if target.ManagerID != nil && *target.ManagerID == requesterID {
		return nil
	}

	return NewPermissionError(requesterID, userID, "jira_stats", "read", "not the owner, their manager, or an admin")
}
