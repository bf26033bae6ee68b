package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== AUTHORING =====

func (s *assessmentService) SaveDraft(ctx context.Context, req *SaveAssessmentRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Saving assessment draft", "user_id", userID, "cycle_id", req.CycleID)

	// Business validation
	if errors := s.validator.GetBusinessValidator().ValidateAssessmentSave(req); len(errors) > 0 {
		return nil, errors
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, req.CycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}
	if !cycle.IsOpen() {
		return nil, ErrCycleNotOpen
	}

	assessment, err := s.repo.SelfAssessment().GetByUserAndCycle(ctx, userID, req.CycleID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get assessment: %w", err)
		}

		// First save for this cycle creates the draft
		assessment = &models.SelfAssessment{
			UserID:  userID,
			CycleID: req.CycleID,
			Content: datatypes.JSON(req.Content),
			Status:  models.AssessmentDraft,
		}

		if err := s.repo.SelfAssessment().Create(ctx, assessment); err != nil {
			return nil, fmt.Errorf("failed to create assessment: %w", err)
		}

		s.logger.Info("Assessment draft created", "assessment_id", assessment.ID, "user_id", userID)
		return s.buildAssessmentResponse(assessment, userID), nil
	}

	if !assessment.Editable() {
		return nil, ErrAssessmentSubmitted
	}

	assessment.Content = datatypes.JSON(req.Content)
	if err := s.repo.SelfAssessment().Update(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info("Assessment draft saved", "assessment_id", assessment.ID, "user_id", userID)

	return s.buildAssessmentResponse(assessment, userID), nil
}

func (s *assessmentService) Submit(ctx context.Context, cycleID uint, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Submitting assessment", "user_id", userID, "cycle_id", cycleID)

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}
	if !cycle.IsOpen() {
		return nil, ErrCycleNotOpen
	}

	assessment, err := s.repo.SelfAssessment().GetByUserAndCycle(ctx, userID, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if !assessment.Editable() {
		return nil, ErrAssessmentSubmitted
	}
	if len(assessment.Content) == 0 {
		return nil, NewValidationError("content", "cannot submit an empty assessment", nil)
	}

	now := time.Now()
	assessment.Status = models.AssessmentSubmitted
	assessment.SubmittedAt = &now

	if err := s.repo.SelfAssessment().Update(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to submit assessment: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.EventAssessmentSubmitted, events.AssessmentSubmittedEvent{
		AssessmentID: assessment.ID,
		UserID:       assessment.UserID,
		CycleID:      assessment.CycleID,
	}); err != nil {
		s.logger.Error("Failed to publish assessment event", "assessment_id", assessment.ID, "error", err)
	}

	s.logger.Info("Assessment submitted successfully", "assessment_id", assessment.ID, "user_id", userID)

	return s.buildAssessmentResponse(assessment, userID), nil
}

// ===== READING =====

func (s *assessmentService) GetOwn(ctx context.Context, cycleID uint, userID string) (*AssessmentResponse, error) {
	assessment, err := s.repo.SelfAssessment().GetByUserAndCycle(ctx, userID, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return s.buildAssessmentResponse(assessment, userID), nil
}

func (s *assessmentService) GetForUser(ctx context.Context, targetUserID string, cycleID uint, requesterID string) (*AssessmentResponse, error) {
	if requesterID == targetUserID {
		return s.GetOwn(ctx, cycleID, requesterID)
	}

	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return nil, err
	}

	if role != models.RoleAdmin {
		isMgr, err := s.isManagerOf(ctx, requesterID, targetUserID)
		if err != nil {
			return nil, err
		}
		if !isMgr {
			return nil, NewPermissionError(requesterID, targetUserID, "assessment", "read", "not the owner, their manager, or an admin")
		}
	}

	assessment, err := s.repo.SelfAssessment().GetByUserAndCycle(ctx, targetUserID, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	// Drafts stay private to their author; managers only see submitted work.
	if role != models.RoleAdmin && assessment.Status != models.AssessmentSubmitted {
		return nil, ErrAssessmentNotFound
	}

	return s.buildAssessmentResponse(assessment, requesterID), nil
}

func (s *assessmentService) ListByCycle(ctx context.Context, cycleID uint, limit, offset int, requesterID string) (*AssessmentListResponse, error) {
	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return nil, err
	}

	if role == models.RoleAdmin {
		assessments, total, err := s.repo.SelfAssessment().ListByCycle(ctx, cycleID, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list assessments: %w", err)
		}
		return s.buildListResponse(assessments, total, limit, offset, requesterID), nil
	}

	if role != models.RoleManager {
		return nil, NewPermissionError(requesterID, cycleID, "assessment", "list", "only managers and admins can list assessments")
	}

	// Managers see their direct reports' submitted assessments only
	reports, err := s.repo.User().GetDirectReports(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct reports: %w", err)
	}

	var assessments []*models.SelfAssessment
	for _, report := range reports {
		assessment, err := s.repo.SelfAssessment().GetByUserAndCycle(ctx, report.ID, cycleID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to get assessment: %w", err)
		}
		if assessment.Status != models.AssessmentSubmitted {
			continue
		}
		assessments = append(assessments, assessment)
	}

	total := int64(len(assessments))
	if offset > len(assessments) {
		offset = len(assessments)
	}
	end := offset + limit
	if limit <= 0 || end > len(assessments) {
		end = len(assessments)
	}

	return s.buildListResponse(assessments[offset:end], total, limit, offset, requesterID), nil
}

// ===== HELPER METHODS =====

func (s *assessmentService) buildAssessmentResponse(assessment *models.SelfAssessment, userID string) *AssessmentResponse {
	canEdit := assessment.UserID == userID && assessment.Editable()

	return &AssessmentResponse{
		SelfAssessment: assessment,
		CanEdit:        canEdit,
		CanSubmit:      canEdit,
	}
}

func (s *assessmentService) buildListResponse(assessments []*models.SelfAssessment, total int64, limit, offset int, userID string) *AssessmentListResponse {
	response := &AssessmentListResponse{
		Assessments: make([]*AssessmentResponse, len(assessments)),
		Total:       total,
		Page:        (offset / max(limit, 1)) + 1,
		Size:        limit,
	}

	for i, assessment := range assessments {
		response.Assessments[i] = s.buildAssessmentResponse(assessment, userID)
	}

	return response
}

func (s *assessmentService) isManagerOf(ctx context.Context, managerID, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.ManagerID != nil && *user.ManagerID == managerID, nil
}
