package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

type feedbackFixture struct {
	repo      *fakeRepository
	service   FeedbackService
	publisher *events.MockEventPublisher
	recorder  *captureRecorder
	admin     *models.User
	manager   *models.User
	emp1      *models.User
	emp2      *models.User
	open      *models.ReviewCycle
	closed    *models.ReviewCycle
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	recorder := &captureRecorder{}
	repo := newFakeRepository()

	admin := &models.User{ID: uuid.NewString(), Email: "ada@example.com", FullName: "Ada Admin", Role: models.RoleAdmin, Active: true}
	manager := &models.User{ID: uuid.NewString(), Email: "mia@example.com", FullName: "Mia Manager", Role: models.RoleManager, Active: true}
	emp1 := &models.User{ID: uuid.NewString(), Email: "eli@example.com", FullName: "Eli Employee", Role: models.RoleEmployee, Active: true, ManagerID: &manager.ID}
	emp2 := &models.User{ID: uuid.NewString(), Email: "noa@example.com", FullName: "Noa Employee", Role: models.RoleEmployee, Active: true, ManagerID: &manager.ID}
	repo.users = append(repo.users, admin, manager, emp1, emp2)

	openedAt := time.Now()
	closedAt := time.Now()
	open := &models.ReviewCycle{ID: 1, Name: "2026 H1", Status: models.CycleOpen, OpenedAt: &openedAt}
	closed := &models.ReviewCycle{ID: 2, Name: "2025 H2", Status: models.CycleClosed, ClosedAt: &closedAt}
	repo.cycles = append(repo.cycles, open, closed)

	return &feedbackFixture{
		repo:      repo,
		service:   NewFeedbackService(repo, nil, logger, validator.New(), publisher, recorder),
		publisher: publisher,
		recorder:  recorder,
		admin:     admin,
		manager:   manager,
		emp1:      emp1,
		emp2:      emp2,
		open:      open,
		closed:    closed,
	}
}

func TestFeedbackService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("RevieweeRequestsColleagueFeedback", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		resp, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.emp2.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}, fx.emp1.ID)
		if err != nil {
			t.Fatalf("CreateRequest failed: %v", err)
		}
		if resp.Status != models.RequestPending {
			t.Errorf("Expected pending status, got %s", resp.Status)
		}
		if resp.CanSubmit || resp.CanDecline {
			t.Error("The requester is not the reviewer and cannot act on the request")
		}

		published := fx.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventFeedbackRequested {
			t.Errorf("Expected a feedback requested event, got %v", published)
		}
	})

	t.Run("SelfReview", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		_, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.emp1.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}, fx.emp1.ID)
		if !errors.Is(err, ErrSelfReview) {
			t.Fatalf("Expected ErrSelfReview, got %v", err)
		}
	})

	t.Run("ClosedCycle", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		_, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.closed.ID,
			ReviewerID: fx.emp2.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}, fx.emp1.ID)
		if !errors.Is(err, ErrCycleNotOpen) {
			t.Fatalf("Expected ErrCycleNotOpen, got %v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		req := &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.emp2.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}
		if _, err := fx.service.CreateRequest(ctx, req, fx.emp1.ID); err != nil {
			t.Fatalf("First request failed: %v", err)
		}
		if _, err := fx.service.CreateRequest(ctx, req, fx.emp1.ID); !errors.Is(err, ErrDuplicateRequest) {
			t.Fatalf("Expected ErrDuplicateRequest, got %v", err)
		}
	})

	t.Run("ManagerKindRequiresTheManager", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		_, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.emp2.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackManager,
		}, fx.emp1.ID)
		if !IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}

		// The actual manager works
		resp, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.manager.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackManager,
		}, fx.emp1.ID)
		if err != nil {
			t.Fatalf("CreateRequest failed: %v", err)
		}
		if resp.Kind != models.FeedbackManager {
			t.Errorf("Expected manager kind, got %s", resp.Kind)
		}
	})

	t.Run("StrangerDenied", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		// emp2 asking for feedback about emp1 is neither the reviewee,
		// their manager, nor an admin
		_, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.admin.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}, fx.emp2.ID)
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("ManagerRequestsForReport", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		_, err := fx.service.CreateRequest(ctx, &CreateFeedbackRequest{
			CycleID:    fx.open.ID,
			ReviewerID: fx.emp2.ID,
			RevieweeID: fx.emp1.ID,
			Kind:       models.FeedbackColleague,
		}, fx.manager.ID)
		if err != nil {
			t.Fatalf("A manager can request feedback for a report: %v", err)
		}
	})
}

func TestFeedbackService_Submit(t *testing.T) {
	ctx := context.Background()

	seedRequest := func(fx *feedbackFixture, cycleID uint) *models.FeedbackRequest {
		request := &models.FeedbackRequest{
			CycleID:     cycleID,
			RequesterID: fx.emp1.ID,
			ReviewerID:  fx.emp2.ID,
			RevieweeID:  fx.emp1.ID,
			Kind:        models.FeedbackColleague,
			Status:      models.RequestPending,
		}
		fx.repo.FeedbackRequest().Create(ctx, request)
		return request
	}

	submitReq := &SubmitFeedbackRequest{
		Answers: json.RawMessage(`{"strengths":"clear communication"}`),
		Rating:  4,
	}

	t.Run("Success", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		request := seedRequest(fx, fx.open.ID)

		feedback, err := fx.service.Submit(ctx, request.ID, submitReq, fx.emp2.ID)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if feedback.Rating != 4 {
			t.Errorf("Expected rating 4, got %d", feedback.Rating)
		}
		if feedback.SubmittedAt.IsZero() {
			t.Error("Submission time should be set")
		}

		updated, err := fx.repo.FeedbackRequest().GetByID(ctx, request.ID)
		if err != nil {
			t.Fatalf("Failed to reload request: %v", err)
		}
		if updated.Status != models.RequestSubmitted {
			t.Errorf("Request should move to submitted, got %s", updated.Status)
		}
		if len(fx.repo.feedbacks) != 1 {
			t.Fatalf("Expected 1 feedback row, got %d", len(fx.repo.feedbacks))
		}

		published := fx.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventFeedbackSubmitted {
			t.Fatalf("Expected a feedback submitted event, got %v", published)
		}
		if fx.recorder.submissions != 1 {
			t.Errorf("Expected 1 submission recorded, got %d", fx.recorder.submissions)
		}
	})

	t.Run("OnlyTheReviewer", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		request := seedRequest(fx, fx.open.ID)

		_, err := fx.service.Submit(ctx, request.ID, submitReq, fx.emp1.ID)
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("AlreadySubmitted", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		request := seedRequest(fx, fx.open.ID)

		if _, err := fx.service.Submit(ctx, request.ID, submitReq, fx.emp2.ID); err != nil {
			t.Fatalf("First submit failed: %v", err)
		}
		if _, err := fx.service.Submit(ctx, request.ID, submitReq, fx.emp2.ID); !errors.Is(err, ErrRequestNotPending) {
			t.Fatalf("Expected ErrRequestNotPending, got %v", err)
		}
	})

	t.Run("ClosedCycle", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		request := seedRequest(fx, fx.closed.ID)

		_, err := fx.service.Submit(ctx, request.ID, submitReq, fx.emp2.ID)
		if !errors.Is(err, ErrCycleNotOpen) {
			t.Fatalf("Expected ErrCycleNotOpen, got %v", err)
		}
	})
}

func TestFeedbackService_DeclineRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("ReviewerDeclines", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		request := &models.FeedbackRequest{
			CycleID:     fx.open.ID,
			RequesterID: fx.emp1.ID,
			ReviewerID:  fx.emp2.ID,
			RevieweeID:  fx.emp1.ID,
			Kind:        models.FeedbackColleague,
			Status:      models.RequestPending,
		}
		fx.repo.FeedbackRequest().Create(ctx, request)

		reason := "worked together too briefly"
		resp, err := fx.service.DeclineRequest(ctx, request.ID, &DeclineFeedbackRequest{Reason: &reason}, fx.emp2.ID)
		if err != nil {
			t.Fatalf("DeclineRequest failed: %v", err)
		}
		if resp.Status != models.RequestDeclined {
			t.Errorf("Expected declined status, got %s", resp.Status)
		}
		if resp.DeclinedReason == nil || *resp.DeclinedReason != reason {
			t.Errorf("Expected declined reason %q, got %v", reason, resp.DeclinedReason)
		}

		published := fx.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventFeedbackDeclined {
			t.Errorf("Expected a feedback declined event, got %v", published)
		}

		// Declining twice is rejected
		if _, err := fx.service.DeclineRequest(ctx, request.ID, &DeclineFeedbackRequest{}, fx.emp2.ID); !errors.Is(err, ErrRequestNotPending) {
			t.Fatalf("Expected ErrRequestNotPending, got %v", err)
		}
	})
}

func TestFeedbackService_Scoping(t *testing.T) {
	ctx := context.Background()

	t.Run("ListRequestsDefaultsToInbox", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		fx.repo.requests = append(fx.repo.requests,
			&models.FeedbackRequest{ID: 21, CycleID: 1, RequesterID: fx.emp1.ID, ReviewerID: fx.emp2.ID, RevieweeID: fx.emp1.ID, Kind: models.FeedbackColleague, Status: models.RequestPending},
			&models.FeedbackRequest{ID: 22, CycleID: 1, RequesterID: fx.emp2.ID, ReviewerID: fx.manager.ID, RevieweeID: fx.emp2.ID, Kind: models.FeedbackColleague, Status: models.RequestPending},
		)

		resp, err := fx.service.ListRequests(ctx, repositories.FeedbackRequestFilters{Limit: 50}, fx.emp2.ID)
		if err != nil {
			t.Fatalf("ListRequests failed: %v", err)
		}
		if resp.Total != 1 {
			t.Fatalf("Expected just the caller's inbox, got %d requests", resp.Total)
		}
		if resp.Requests[0].ReviewerID != fx.emp2.ID {
			t.Errorf("Expected the caller as reviewer, got %s", resp.Requests[0].ReviewerID)
		}
		if !resp.Requests[0].CanSubmit || !resp.Requests[0].CanDecline {
			t.Error("A pending request in the caller's inbox is actionable")
		}
	})

	t.Run("ListRequestsForeignFilterDenied", func(t *testing.T) {
		fx := newFeedbackFixture(t)

		_, err := fx.service.ListRequests(ctx, repositories.FeedbackRequestFilters{ReviewerID: &fx.emp1.ID, Limit: 50}, fx.emp2.ID)
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("ListReceivedVisibility", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		fx.repo.feedbacks = append(fx.repo.feedbacks, &models.Feedback{
			ID: 31, RequestID: 21, CycleID: 1,
			ReviewerID: fx.emp2.ID, RevieweeID: fx.emp1.ID,
			Kind: models.FeedbackColleague, Rating: 5, SubmittedAt: time.Now(),
		})

		// The reviewee's manager may read received feedback
		list, err := fx.service.ListReceived(ctx, fx.emp1.ID, 1, fx.manager.ID)
		if err != nil {
			t.Fatalf("ListReceived failed for the manager: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("Expected 1 feedback, got %d", len(list))
		}

		// An unrelated employee may not
		if _, err := fx.service.ListReceived(ctx, fx.emp1.ID, 1, fx.emp2.ID); !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("GetFeedbackVisibility", func(t *testing.T) {
		fx := newFeedbackFixture(t)
		stranger := &models.User{ID: uuid.NewString(), Email: "sam@example.com", FullName: "Sam Stranger", Role: models.RoleEmployee, Active: true}
		fx.repo.users = append(fx.repo.users, stranger)
		fx.repo.feedbacks = append(fx.repo.feedbacks, &models.Feedback{
			ID: 32, RequestID: 22, CycleID: 1,
			ReviewerID: fx.emp2.ID, RevieweeID: fx.emp1.ID,
			Kind: models.FeedbackColleague, Rating: 3, SubmittedAt: time.Now(),
		})

		if _, err := fx.service.GetFeedback(ctx, 32, fx.manager.ID); err != nil {
			t.Errorf("The reviewee's manager should see the feedback: %v", err)
		}
		if _, err := fx.service.GetFeedback(ctx, 32, stranger.ID); !IsPermissionError(err) {
			t.Fatalf("Expected permission error for a stranger, got %v", err)
		}
	})
}
