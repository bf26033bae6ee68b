package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

const reminderPageSize = 500

type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
}

func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      validator,
	}
}

// SendFeedbackReminders publishes one reminder event per reviewer with
// pending requests in the cycle. Returns the number of reminders published.
func (s *notificationEventService) SendFeedbackReminders(ctx context.Context, cycleID uint, requesterID string) (int, error) {
	s.logger.Info("Sending feedback reminders", "cycle_id", cycleID, "requester_id", requesterID)

	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return 0, err
	}
	if role != models.RoleAdmin {
		return 0, NewPermissionError(requesterID, cycleID, "notification", "send_reminders", "only admins can send reminders")
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrCycleNotFound
		}
		return 0, fmt.Errorf("failed to get review cycle: %w", err)
	}
	if !cycle.IsOpen() {
		return 0, ErrCycleNotOpen
	}

	pending, err := s.pendingByReviewer(ctx, cycleID)
	if err != nil {
		return 0, err
	}

	sent := 0
	for reviewerID, count := range pending {
		event := events.FeedbackReminderEvent{
			ReviewerID:   reviewerID,
			CycleID:      cycle.ID,
			CycleName:    cycle.Name,
			PendingCount: count,
			RequestedBy:  requesterID,
		}

		if err := s.eventPublisher.Publish(ctx, events.EventFeedbackReminder, event); err != nil {
			s.logger.Error("Failed to publish reminder", "reviewer_id", reviewerID, "cycle_id", cycleID, "error", err)
			continue
		}
		sent++
	}

	s.logger.Info("Feedback reminders sent", "cycle_id", cycleID, "reminders", sent)

	return sent, nil
}

func (s *notificationEventService) pendingByReviewer(ctx context.Context, cycleID uint) (map[string]int, error) {
	status := models.RequestPending
	filters := repositories.FeedbackRequestFilters{
		CycleID: &cycleID,
		Status:  &status,
		Limit:   reminderPageSize,
	}

	pending := make(map[string]int)
	for {
		requests, _, err := s.repo.FeedbackRequest().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending requests: %w", err)
		}

		for _, request := range requests {
			pending[request.ReviewerID]++
		}

		if len(requests) < filters.Limit {
			return pending, nil
		}
		filters.Offset += filters.Limit
	}
}
