package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

type feedbackService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	recorder  metrics.Recorder
}

func NewFeedbackService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, recorder metrics.Recorder) FeedbackService {
	return &feedbackService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		recorder:  recorder,
	}
}

// ===== REQUEST LIFECYCLE =====

func (s *feedbackService) CreateRequest(ctx context.Context, req *CreateFeedbackRequest, requesterID string) (*FeedbackRequestResponse, error) {
	s.logger.Info("Creating feedback request",
		"requester_id", requesterID,
		"cycle_id", req.CycleID,
		"reviewer_id", req.ReviewerID,
		"reviewee_id", req.RevieweeID,
		"kind", req.Kind)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.ReviewerID == req.RevieweeID {
		return nil, ErrSelfReview
	}

	// Requests only attach to the open cycle
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

	reviewer, err := s.repo.User().GetByID(ctx, req.ReviewerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("reviewer_id", "reviewer not found", req.ReviewerID)
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	if !reviewer.Active {
		return nil, NewValidationError("reviewer_id", "reviewer is deactivated", req.ReviewerID)
	}

	reviewee, err := s.repo.User().GetByID(ctx, req.RevieweeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("reviewee_id", "reviewee not found", req.RevieweeID)
		}
		return nil, fmt.Errorf("failed to get reviewee: %w", err)
	}
	if !reviewee.Active {
		return nil, NewValidationError("reviewee_id", "reviewee is deactivated", req.RevieweeID)
	}

	// Reviewees request their own feedback; managers request for their
	// reports; admins for anyone.
	if requesterID != req.RevieweeID {
		role, err := resolveUserRole(ctx, s.repo, requesterID)
		if err != nil {
			return nil, err
		}
		isManager := reviewee.ManagerID != nil && *reviewee.ManagerID == requesterID
		if role != models.RoleAdmin && !isManager {
			return nil, NewPermissionError(requesterID, req.RevieweeID, "feedback_request", "create", "not the reviewee, their manager, or an admin")
		}
	}

	// Manager feedback must come from the reviewee's current manager
	if req.Kind == models.FeedbackManager {
		if reviewee.ManagerID == nil || *reviewee.ManagerID != req.ReviewerID {
			return nil, NewValidationError("reviewer_id", "reviewer is not the reviewee's manager", req.ReviewerID)
		}
	}

	exists, err := s.repo.FeedbackRequest().Exists(ctx, req.CycleID, req.ReviewerID, req.RevieweeID, req.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate request: %w", err)
	}
	if exists {
		return nil, ErrDuplicateRequest
	}

	request := &models.FeedbackRequest{
		CycleID:     req.CycleID,
		RequesterID: requesterID,
		ReviewerID:  req.ReviewerID,
		RevieweeID:  req.RevieweeID,
		Kind:        req.Kind,
		Status:      models.RequestPending,
		Message:     req.Message,
		DueDate:     req.DueDate,
	}

	if err := s.repo.FeedbackRequest().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create feedback request: %w", err)
	}

	s.publishFeedbackEvent(ctx, events.EventFeedbackRequested, events.FeedbackRequestedEvent{
		RequestID:   request.ID,
		CycleID:     request.CycleID,
		RequesterID: request.RequesterID,
		ReviewerID:  request.ReviewerID,
		RevieweeID:  request.RevieweeID,
		Kind:        request.Kind,
	})

	s.logger.Info("Feedback request created successfully", "request_id", request.ID)

	return s.buildRequestResponse(request, requesterID), nil
}

func (s *feedbackService) GetRequest(ctx context.Context, id uint, userID string) (*FeedbackRequestResponse, error) {
	request, err := s.repo.FeedbackRequest().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFeedbackRequestNotFound
		}
		return nil, fmt.Errorf("failed to get feedback request: %w", err)
	}

	if request.RequesterID != userID && request.ReviewerID != userID && request.RevieweeID != userID {
		role, err := resolveUserRole(ctx, s.repo, userID)
		if err != nil {
			return nil, err
		}
		if role != models.RoleAdmin {
			return nil, NewPermissionError(userID, id, "feedback_request", "read", "not a participant or an admin")
		}
	}

	return s.buildRequestResponse(request, userID), nil
}

func (s *feedbackService) ListRequests(ctx context.Context, filters repositories.FeedbackRequestFilters, userID string) (*FeedbackRequestListResponse, error) {
	role, err := resolveUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	// Non-admins only see requests where they are reviewer or reviewee.
	// With no party filter set, default to the caller's inbox.
	if role != models.RoleAdmin {
		reviewerIsSelf := filters.ReviewerID != nil && *filters.ReviewerID == userID
		revieweeIsSelf := filters.RevieweeID != nil && *filters.RevieweeID == userID
		if !reviewerIsSelf && !revieweeIsSelf {
			if filters.ReviewerID != nil || filters.RevieweeID != nil {
				return nil, NewPermissionError(userID, nil, "feedback_request", "list", "cannot list other users' requests")
			}
			filters.ReviewerID = &userID
		}
	}

	requests, total, err := s.repo.FeedbackRequest().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback requests: %w", err)
	}

	// Build response
	response := &FeedbackRequestListResponse{
		Requests: make([]*FeedbackRequestResponse, len(requests)),
		Total:    total,
		Page:     (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:     filters.Limit,
	}

	for i, request := range requests {
		response.Requests[i] = s.buildRequestResponse(request, userID)
	}

	return response, nil
}

func (s *feedbackService) DeclineRequest(ctx context.Context, id uint, req *DeclineFeedbackRequest, reviewerID string) (*FeedbackRequestResponse, error) {
	s.logger.Info("Declining feedback request", "request_id", id, "reviewer_id", reviewerID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	request, err := s.repo.FeedbackRequest().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFeedbackRequestNotFound
		}
		return nil, fmt.Errorf("failed to get feedback request: %w", err)
	}

	if request.ReviewerID != reviewerID {
		return nil, NewPermissionError(reviewerID, id, "feedback_request", "decline", "only the assigned reviewer can decline")
	}
	if request.Status != models.RequestPending {
		return nil, ErrRequestNotPending
	}

	request.Status = models.RequestDeclined
	request.DeclinedReason = req.Reason

	if err := s.repo.FeedbackRequest().Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to decline feedback request: %w", err)
	}

	s.publishFeedbackEvent(ctx, events.EventFeedbackDeclined, events.FeedbackDeclinedEvent{
		RequestID:  request.ID,
		CycleID:    request.CycleID,
		ReviewerID: request.ReviewerID,
		Reason:     req.Reason,
	})

	s.logger.Info("Feedback request declined", "request_id", id)

	return s.buildRequestResponse(request, reviewerID), nil
}

// ===== SUBMISSION AND READING =====

func (s *feedbackService) Submit(ctx context.Context, requestID uint, req *SubmitFeedbackRequest, reviewerID string) (*models.Feedback, error) {
	s.logger.Info("Submitting feedback", "request_id", requestID, "reviewer_id", reviewerID)

	// Business validation
	if errors := s.validator.GetBusinessValidator().ValidateFeedbackSubmit(req); len(errors) > 0 {
		return nil, errors
	}

	request, err := s.repo.FeedbackRequest().GetByID(ctx, requestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFeedbackRequestNotFound
		}
		return nil, fmt.Errorf("failed to get feedback request: %w", err)
	}

	if request.ReviewerID != reviewerID {
		return nil, NewPermissionError(reviewerID, requestID, "feedback", "submit", "only the assigned reviewer can submit")
	}
	if request.Status != models.RequestPending {
		return nil, ErrRequestNotPending
	}

	// The cycle must still be open at submission time
	cycle, err := s.repo.ReviewCycle().GetByID(ctx, request.CycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get review cycle: %w", err)
	}
	if !cycle.IsOpen() {
		return nil, ErrCycleNotOpen
	}

	feedback := &models.Feedback{
		RequestID:   request.ID,
		CycleID:     request.CycleID,
		ReviewerID:  request.ReviewerID,
		RevieweeID:  request.RevieweeID,
		Kind:        request.Kind,
		Answers:     datatypes.JSON(req.Answers),
		Rating:      req.Rating,
		Summary:     req.Summary,
		SubmittedAt: time.Now(),
	}

	// Feedback row and request status move together.
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Feedback().Create(ctx, feedback); err != nil {
			return fmt.Errorf("failed to create feedback: %w", err)
		}

		request.Status = models.RequestSubmitted
		if err := txRepo.FeedbackRequest().Update(ctx, request); err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.RecordFeedbackSubmitted()
	s.publishFeedbackEvent(ctx, events.EventFeedbackSubmitted, events.FeedbackSubmittedEvent{
		FeedbackID: feedback.ID,
		RequestID:  request.ID,
		CycleID:    feedback.CycleID,
		ReviewerID: feedback.ReviewerID,
		RevieweeID: feedback.RevieweeID,
		Kind:       feedback.Kind,
		Rating:     feedback.Rating,
	})

	s.logger.Info("Feedback submitted successfully", "feedback_id", feedback.ID, "request_id", request.ID)

	return feedback, nil
}

func (s *feedbackService) GetFeedback(ctx context.Context, id uint, userID string) (*models.Feedback, error) {
	feedback, err := s.repo.Feedback().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	canView, err := s.canViewFeedback(ctx, feedback, userID)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, NewPermissionError(userID, id, "feedback", "read", "not a participant, the reviewee's manager, or an admin")
	}

	return feedback, nil
}

func (s *feedbackService) ListFeedback(ctx context.Context, filters repositories.FeedbackFilters, userID string) (*FeedbackListResponse, error) {
	role, err := resolveUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	// Non-admins only see feedback they wrote or received. With no party
	// filter set, default to feedback about the caller.
	if role != models.RoleAdmin {
		reviewerIsSelf := filters.ReviewerID != nil && *filters.ReviewerID == userID
		revieweeIsSelf := filters.RevieweeID != nil && *filters.RevieweeID == userID
		if !reviewerIsSelf && !revieweeIsSelf {
			if filters.ReviewerID != nil || filters.RevieweeID != nil {
				return nil, NewPermissionError(userID, nil, "feedback", "list", "cannot list other users' feedback")
			}
			filters.RevieweeID = &userID
		}
	}

	feedback, total, err := s.repo.Feedback().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	return &FeedbackListResponse{
		Feedback: feedback,
		Total:    total,
		Page:     (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:     filters.Limit,
	}, nil
}

func (s *feedbackService) ListReceived(ctx context.Context, revieweeID string, cycleID uint, userID string) ([]*models.Feedback, error) {
	if userID != revieweeID {
		role, err := resolveUserRole(ctx, s.repo, userID)
		if err != nil {
			return nil, err
		}
		if role != models.RoleAdmin {
			isMgr, err := s.isManagerOf(ctx, userID, revieweeID)
			if err != nil {
				return nil, err
			}
			if !isMgr {
				return nil, NewPermissionError(userID, revieweeID, "feedback", "list_received", "not the reviewee, their manager, or an admin")
			}
		}
	}

	feedback, err := s.repo.Feedback().ListForReviewee(ctx, revieweeID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list received feedback: %w", err)
	}

	return feedback, nil
}

// ===== HELPER METHODS =====

func (s *feedbackService) buildRequestResponse(request *models.FeedbackRequest, userID string) *FeedbackRequestResponse {
	request.Overdue = request.Status == models.RequestPending &&
		request.DueDate != nil && time.Now().After(*request.DueDate)

	canAct := request.Status == models.RequestPending && request.ReviewerID == userID

	return &FeedbackRequestResponse{
		FeedbackRequest: request,
		CanSubmit:       canAct,
		CanDecline:      canAct,
	}
}

func (s *feedbackService) canViewFeedback(ctx context.Context, feedback *models.Feedback, userID string) (bool, error) {
	if feedback.ReviewerID == userID || feedback.RevieweeID == userID {
		return true, nil
	}

	role, err := resolveUserRole(ctx, s.repo, userID)
	if err != nil {
		return false, err
	}
	if role == models.RoleAdmin {
		return true, nil
	}

	return s.isManagerOf(ctx, userID, feedback.RevieweeID)
}

func (s *feedbackService) isManagerOf(ctx context.Context, managerID, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.ManagerID != nil && *user.ManagerID == managerID, nil
}

func (s *feedbackService) publishFeedbackEvent(ctx context.Context, eventType string, data interface{}) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.Error("Failed to publish feedback event", "event_type", eventType, "error", err)
	}
}
