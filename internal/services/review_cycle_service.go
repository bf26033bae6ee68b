package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

type reviewCycleService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewReviewCycleService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ReviewCycleService {
	return &reviewCycleService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *reviewCycleService) Create(ctx context.Context, req *CreateCycleRequest, creatorID string) (*CycleResponse, error) {
	s.logger.Info("Creating review cycle", "creator_id", creatorID, "name", req.Name)

	// Business validation
	if errors := s.validator.GetBusinessValidator().ValidateCycleCreate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAdmin(ctx, creatorID, req.Name, "create"); err != nil {
		return nil, err
	}

	// Check name uniqueness
	exists, err := s.repo.ReviewCycle().ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check cycle name uniqueness: %w", err)
	}
	if exists {
		return nil, ErrCycleNameTaken
	}

	cycle := &models.ReviewCycle{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.CycleDraft,
		CreatedBy:   creatorID,
	}

	if err := s.repo.ReviewCycle().Create(ctx, cycle); err != nil {
		return nil, fmt.Errorf("failed to create review cycle: %w", err)
	}

	s.logger.Info("Review cycle created successfully", "cycle_id", cycle.ID)

	return s.buildCycleResponse(cycle), nil
}

func (s *reviewCycleService) GetByID(ctx context.Context, id uint) (*CycleResponse, error) {
	cycle, err := s.repo.ReviewCycle().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}

	return s.buildCycleResponse(cycle), nil
}

func (s *reviewCycleService) Update(ctx context.Context, id uint, req *UpdateCycleRequest, requesterID string) (*CycleResponse, error) {
	s.logger.Info("Updating review cycle", "cycle_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "update"); err != nil {
		return nil, err
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}

	// Only drafts are editable; an open cycle already has submissions
	// depending on its window.
	if cycle.Status != models.CycleDraft {
		return nil, ErrCycleNotDraft
	}

	// Business validation
	if errors := s.validator.GetBusinessValidator().ValidateCycleUpdate(req, cycle); len(errors) > 0 {
		return nil, errors
	}

	// Check name uniqueness if name is being updated
	if req.Name != nil && *req.Name != cycle.Name {
		exists, err := s.repo.ReviewCycle().ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check cycle name uniqueness: %w", err)
		}
		if exists {
			return nil, ErrCycleNameTaken
		}
	}

	// Apply updates
	if req.Name != nil {
		cycle.Name = *req.Name
	}
	if req.Description != nil {
		cycle.Description = req.Description
	}
	if req.StartDate != nil {
		cycle.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		cycle.EndDate = *req.EndDate
	}

	if err := s.repo.ReviewCycle().Update(ctx, cycle); err != nil {
		return nil, fmt.Errorf("failed to update review cycle: %w", err)
	}

	s.logger.Info("Review cycle updated successfully", "cycle_id", id)

	return s.buildCycleResponse(cycle), nil
}

func (s *reviewCycleService) Delete(ctx context.Context, id uint, requesterID string) error {
	s.logger.Info("Deleting review cycle", "cycle_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "delete"); err != nil {
		return err
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCycleNotFound
		}
		return fmt.Errorf("failed to get review cycle: %w", err)
	}

	if cycle.Status != models.CycleDraft {
		return ErrCycleNotDraft
	}

	if err := s.repo.ReviewCycle().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete review cycle: %w", err)
	}

	s.logger.Info("Review cycle deleted successfully", "cycle_id", id)
	return nil
}

func (s *reviewCycleService) List(ctx context.Context, filters repositories.CycleFilters) (*CycleListResponse, error) {
	cycles, total, err := s.repo.ReviewCycle().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list review cycles: %w", err)
	}

	// Build response
	response := &CycleListResponse{
		Cycles: make([]*CycleResponse, len(cycles)),
		Total:  total,
		Page:   (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:   filters.Limit,
	}

	for i, cycle := range cycles {
		response.Cycles[i] = s.buildCycleResponse(cycle)
	}

	return response, nil
}

func (s *reviewCycleService) GetOpen(ctx context.Context) (*CycleResponse, error) {
	cycle, err := s.repo.ReviewCycle().GetOpen(ctx)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get open review cycle: %w", err)
	}

	return s.buildCycleResponse(cycle), nil
}

// ===== STATUS TRANSITIONS =====

func (s *reviewCycleService) Open(ctx context.Context, id uint, requesterID string) (*CycleResponse, error) {
	s.logger.Info("Opening review cycle", "cycle_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "open"); err != nil {
		return nil, err
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateCycleTransition(cycle.Status, models.CycleOpen); len(errors) > 0 {
		return nil, errors
	}

	// At most one cycle is open at a time.
	open, err := s.repo.ReviewCycle().GetOpen(ctx)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check for open cycle: %w", err)
	}
	if open != nil && open.ID != cycle.ID {
		return nil, ErrOpenCycleExists
	}

	now := time.Now()
	cycle.Status = models.CycleOpen
	cycle.OpenedAt = &now

	if err := s.repo.ReviewCycle().Update(ctx, cycle); err != nil {
		return nil, fmt.Errorf("failed to open review cycle: %w", err)
	}

	s.publishCycleEvent(ctx, events.EventCycleOpened, cycle, requesterID)
	s.logger.Info("Review cycle opened successfully", "cycle_id", id)

	return s.buildCycleResponse(cycle), nil
}

func (s *reviewCycleService) Close(ctx context.Context, id uint, requesterID string) (*CycleResponse, error) {
	s.logger.Info("Closing review cycle", "cycle_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "close"); err != nil {
		return nil, err
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateCycleTransition(cycle.Status, models.CycleClosed); len(errors) > 0 {
		return nil, errors
	}

	now := time.Now()
	cycle.Status = models.CycleClosed
	cycle.ClosedAt = &now

	if err := s.repo.ReviewCycle().Update(ctx, cycle); err != nil {
		return nil, fmt.Errorf("failed to close review cycle: %w", err)
	}

	s.publishCycleEvent(ctx, events.EventCycleClosed, cycle, requesterID)
	s.logger.Info("Review cycle closed successfully", "cycle_id", id)

	return s.buildCycleResponse(cycle), nil
}

// ===== STATISTICS =====

func (s *reviewCycleService) GetStats(ctx context.Context, id uint) (*repositories.CycleStats, error) {
	if _, err := s.repo.ReviewCycle().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}

	stats := &repositories.CycleStats{}

	pending, err := s.repo.FeedbackRequest().CountByStatus(ctx, id, models.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	submitted, err := s.repo.FeedbackRequest().CountByStatus(ctx, id, models.RequestSubmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to count submitted requests: %w", err)
	}
	declined, err := s.repo.FeedbackRequest().CountByStatus(ctx, id, models.RequestDeclined)
	if err != nil {
		return nil, fmt.Errorf("failed to count declined requests: %w", err)
	}

	stats.PendingRequests = pending
	stats.SubmittedRequests = submitted
	stats.DeclinedRequests = declined
	stats.TotalRequests = pending + submitted + declined
	if stats.TotalRequests > 0 {
		stats.CompletionRate = float64(submitted) / float64(stats.TotalRequests)
	}

	draftAssessments, err := s.repo.SelfAssessment().CountByStatus(ctx, id, models.AssessmentDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to count draft assessments: %w", err)
	}
	submittedAssessments, err := s.repo.SelfAssessment().CountByStatus(ctx, id, models.AssessmentSubmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to count submitted assessments: %w", err)
	}

	stats.TotalAssessments = draftAssessments + submittedAssessments
	stats.SubmittedAssessments = submittedAssessments

	return stats, nil
}

// ===== HELPER METHODS =====

func (s *reviewCycleService) requireAdmin(ctx context.Context, requesterID string, resourceID any, action string) error {
	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return NewPermissionError(requesterID, resourceID, "review_cycle", action, "only admins can manage review cycles")
	}

	return nil
}

func (s *reviewCycleService) buildCycleResponse(cycle *models.ReviewCycle) *CycleResponse {
	return &CycleResponse{
		ReviewCycle: cycle,
		CanEdit:     cycle.Status == models.CycleDraft,
	}
}

func (s *reviewCycleService) publishCycleEvent(ctx context.Context, eventType string, cycle *models.ReviewCycle, changedBy string) {
	err := s.publisher.Publish(ctx, eventType, events.CycleStatusEvent{
		CycleID:   cycle.ID,
		Name:      cycle.Name,
		Status:    cycle.Status,
		ChangedBy: changedBy,
	})
	if err != nil {
		s.logger.Error("Failed to publish cycle event", "event_type", eventType, "cycle_id", cycle.ID, "error", err)
	}
}
