package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/validator"
)

type cycleFixture struct {
	repo      *fakeRepository
	service   ReviewCycleService
	publisher *events.MockEventPublisher
	admin     *models.User
	employee  *models.User
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	repo := newFakeRepository()

	admin := &models.User{ID: "admin-1", Email: "ada@example.com", FullName: "Ada Admin", Role: models.RoleAdmin, Active: true}
	employee := &models.User{ID: "emp-1", Email: "eli@example.com", FullName: "Eli Employee", Role: models.RoleEmployee, Active: true}
	repo.users = append(repo.users, admin, employee)

	return &cycleFixture{
		repo:      repo,
		service:   NewReviewCycleService(repo, nil, logger, validator.New(), publisher),
		publisher: publisher,
		admin:     admin,
		employee:  employee,
	}
}

func (fx *cycleFixture) createDraft(t *testing.T, name string) *CycleResponse {
	t.Helper()

	resp, err := fx.service.Create(context.Background(), &CreateCycleRequest{
		Name:      name,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}, fx.admin.ID)
	if err != nil {
		t.Fatalf("Failed to create cycle: %v", err)
	}
	return resp
}

func TestReviewCycleService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminCreatesDraft", func(t *testing.T) {
		fx := newCycleFixture(t)

		resp := fx.createDraft(t, "2026 H1")
		if resp.Status != models.CycleDraft {
			t.Errorf("New cycles start as drafts, got %s", resp.Status)
		}
		if !resp.CanEdit {
			t.Error("Drafts are editable")
		}
		if resp.CreatedBy != fx.admin.ID {
			t.Errorf("Expected creator %s, got %s", fx.admin.ID, resp.CreatedBy)
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		fx := newCycleFixture(t)

		fx.createDraft(t, "2026 H1")
		_, err := fx.service.Create(ctx, &CreateCycleRequest{
			Name:      "2026 H1",
			StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		}, fx.admin.ID)
		if !errors.Is(err, ErrCycleNameTaken) {
			t.Fatalf("Expected ErrCycleNameTaken, got %v", err)
		}
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		fx := newCycleFixture(t)

		_, err := fx.service.Create(ctx, &CreateCycleRequest{
			Name:      "backwards",
			StartDate: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}, fx.admin.ID)
		if !IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		fx := newCycleFixture(t)

		_, err := fx.service.Create(ctx, &CreateCycleRequest{
			Name:      "2026 H1",
			StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		}, fx.employee.ID)
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})
}

func TestReviewCycleService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenThenClose", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")
		fx.publisher.ClearEvents()

		opened, err := fx.service.Open(ctx, draft.ID, fx.admin.ID)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if opened.Status != models.CycleOpen || opened.OpenedAt == nil {
			t.Errorf("Expected an open cycle with a timestamp, got %s", opened.Status)
		}
		if opened.CanEdit {
			t.Error("Open cycles are not editable")
		}

		closed, err := fx.service.Close(ctx, draft.ID, fx.admin.ID)
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if closed.Status != models.CycleClosed || closed.ClosedAt == nil {
			t.Errorf("Expected a closed cycle with a timestamp, got %s", closed.Status)
		}

		published := fx.publisher.GetPublishedEvents()
		if len(published) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(published))
		}
		if published[0].Type != events.EventCycleOpened || published[1].Type != events.EventCycleClosed {
			t.Errorf("Expected open then close events, got %s, %s", published[0].Type, published[1].Type)
		}
	})

	t.Run("OnlyOneOpenCycle", func(t *testing.T) {
		fx := newCycleFixture(t)
		first := fx.createDraft(t, "2026 H1")
		second := fx.createDraft(t, "2026 H2")

		if _, err := fx.service.Open(ctx, first.ID, fx.admin.ID); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if _, err := fx.service.Open(ctx, second.ID, fx.admin.ID); !errors.Is(err, ErrOpenCycleExists) {
			t.Fatalf("Expected ErrOpenCycleExists, got %v", err)
		}

		// Closing the first frees the slot
		if _, err := fx.service.Close(ctx, first.ID, fx.admin.ID); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := fx.service.Open(ctx, second.ID, fx.admin.ID); err != nil {
			t.Fatalf("Open after close failed: %v", err)
		}
	})

	t.Run("ClosedIsTerminal", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")

		if _, err := fx.service.Open(ctx, draft.ID, fx.admin.ID); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if _, err := fx.service.Close(ctx, draft.ID, fx.admin.ID); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := fx.service.Open(ctx, draft.ID, fx.admin.ID); !IsValidationError(err) {
			t.Fatalf("Expected a transition validation error, got %v", err)
		}
	})

	t.Run("DraftCannotClose", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")

		if _, err := fx.service.Close(ctx, draft.ID, fx.admin.ID); !IsValidationError(err) {
			t.Fatalf("Expected a transition validation error, got %v", err)
		}
	})
}

func TestReviewCycleService_EditRules(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenCycleRejectsUpdates", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")

		if _, err := fx.service.Open(ctx, draft.ID, fx.admin.ID); err != nil {
			t.Fatalf("Open failed: %v", err)
		}

		name := "renamed"
		if _, err := fx.service.Update(ctx, draft.ID, &UpdateCycleRequest{Name: &name}, fx.admin.ID); !errors.Is(err, ErrCycleNotDraft) {
			t.Fatalf("Expected ErrCycleNotDraft, got %v", err)
		}
		if err := fx.service.Delete(ctx, draft.ID, fx.admin.ID); !errors.Is(err, ErrCycleNotDraft) {
			t.Fatalf("Expected ErrCycleNotDraft, got %v", err)
		}
	})

	t.Run("DraftUpdates", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")

		name := "2026 First Half"
		resp, err := fx.service.Update(ctx, draft.ID, &UpdateCycleRequest{Name: &name}, fx.admin.ID)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if resp.Name != name {
			t.Errorf("Expected name %q, got %q", name, resp.Name)
		}
	})

	t.Run("GetOpenFindsTheOpenCycle", func(t *testing.T) {
		fx := newCycleFixture(t)
		draft := fx.createDraft(t, "2026 H1")

		if _, err := fx.service.GetOpen(ctx); !errors.Is(err, ErrCycleNotFound) {
			t.Fatalf("Expected ErrCycleNotFound with no open cycle, got %v", err)
		}
		if _, err := fx.service.Open(ctx, draft.ID, fx.admin.ID); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		open, err := fx.service.GetOpen(ctx)
		if err != nil {
			t.Fatalf("GetOpen failed: %v", err)
		}
		if open.ID != draft.ID {
			t.Errorf("Expected cycle %d, got %d", draft.ID, open.ID)
		}
	})
}
