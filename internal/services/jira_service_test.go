package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/review-service/internal/jira"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/validator"
)

type jiraFixture struct {
	repo     *fakeRepository
	service  JiraService
	admin    *models.User
	manager  *models.User
	employee *models.User
	peer     *models.User
}

// newJiraFixture builds the service without a Jira client; queries never
// touch it, and sync tests construct their own against a test server.
func newJiraFixture(t *testing.T) *jiraFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newFakeRepository()

	mia, eli := "mia", "eli"
	admin := &models.User{ID: uuid.NewString(), Email: "ada@example.com", FullName: "Ada Admin", Role: models.RoleAdmin, Active: true}
	manager := &models.User{ID: uuid.NewString(), Email: "mia@example.com", FullName: "Mia Manager", Role: models.RoleManager, Active: true, JiraUsername: &mia}
	employee := &models.User{ID: uuid.NewString(), Email: "eli@example.com", FullName: "Eli Employee", Role: models.RoleEmployee, Active: true, ManagerID: &manager.ID, JiraUsername: &eli}
	peer := &models.User{ID: uuid.NewString(), Email: "pia@example.com", FullName: "Pia Peer", Role: models.RoleEmployee, Active: true}
	repo.users = append(repo.users, admin, manager, employee, peer)

	return &jiraFixture{
		repo:     repo,
		service:  NewJiraService(repo, logger, validator.New(), nil),
		admin:    admin,
		manager:  manager,
		employee: employee,
		peer:     peer,
	}
}

func (fx *jiraFixture) syncService(t *testing.T, handler http.HandlerFunc) (JiraService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	client := jira.NewClient(jira.Config{
		BaseURL:          server.URL,
		Email:            "svc@example.com",
		APIToken:         "secret",
		StoryPointsField: "customfield_10016",
	}, logger)

	return NewJiraService(fx.repo, logger, validator.New(), client), server
}

func (fx *jiraFixture) seedStat(userID, period string, resolved int) *models.JiraUserStat {
	stat := &models.JiraUserStat{
		ID:             fx.repo.newID(),
		UserID:         userID,
		Period:         period,
		IssuesResolved: resolved,
		SyncedAt:       time.Now(),
	}
	fx.repo.jiraStats = append(fx.repo.jiraStats, stat)
	return stat
}

// One issue created and resolved inside March 2026, worth 5 points.
const marchSearchResponse = `{
	"startAt": 0,
	"maxResults": 100,
	"total": 1,
	"issues": [{
		"key": "ENG-1",
		"fields": {
			"created": "2026-03-02T10:15:00.000+0000",
			"resolutiondate": "2026-03-04T16:30:00.000+0000",
			"status": {"statusCategory": {"key": "done"}},
			"customfield_10016": 5
		}
	}]
}`

func TestJiraService_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminSyncsAllActiveUsers", func(t *testing.T) {
		fx := newJiraFixture(t)
		service, _ := fx.syncService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(marchSearchResponse))
		})

		result, err := service.Sync(ctx, &SyncJiraRequest{Period: "2026-03"}, fx.admin.ID)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Synced != 2 {
			t.Errorf("Expected 2 synced users, got %d", result.Synced)
		}
		if result.Skipped != 2 {
			t.Errorf("Expected 2 skipped users without a Jira username, got %d", result.Skipped)
		}
		if result.Failed != 0 {
			t.Errorf("Expected no failures, got %d: %v", result.Failed, result.Errors)
		}

		stat, err := fx.repo.JiraStat().GetByUserAndPeriod(ctx, fx.employee.ID, "2026-03")
		if err != nil {
			t.Fatalf("Expected a stored stat for employee: %v", err)
		}
		if stat.IssuesCreated != 1 || stat.IssuesResolved != 1 {
			t.Errorf("Expected 1 created and 1 resolved, got %d/%d", stat.IssuesCreated, stat.IssuesResolved)
		}
		if stat.StoryPoints != 5 {
			t.Errorf("Expected 5 story points, got %.1f", stat.StoryPoints)
		}
	})

	t.Run("ExplicitUserListAndResync", func(t *testing.T) {
		fx := newJiraFixture(t)
		service, _ := fx.syncService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(marchSearchResponse))
		})

		req := &SyncJiraRequest{Period: "2026-03", UserIDs: []string{fx.employee.ID}}
		for i := 0; i < 2; i++ {
			result, err := service.Sync(ctx, req, fx.admin.ID)
			if err != nil {
				t.Fatalf("Sync %d failed: %v", i+1, err)
			}
			if result.Synced != 1 {
				t.Errorf("Expected 1 synced user, got %d", result.Synced)
			}
		}
		if len(fx.repo.jiraStats) != 1 {
			t.Errorf("Re-sync must replace the row, got %d rows", len(fx.repo.jiraStats))
		}
	})

	t.Run("FetchFailureIsCounted", func(t *testing.T) {
		fx := newJiraFixture(t)
		service, _ := fx.syncService(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})

		result, err := service.Sync(ctx, &SyncJiraRequest{Period: "2026-03", UserIDs: []string{fx.employee.ID}}, fx.admin.ID)
		if err != nil {
			t.Fatalf("Sync must not fail outright on a fetch error: %v", err)
		}
		if result.Failed != 1 || result.Synced != 0 {
			t.Errorf("Expected 1 failed and 0 synced, got %d/%d", result.Failed, result.Synced)
		}
		if len(result.Errors) != 1 {
			t.Errorf("Expected one recorded error, got %v", result.Errors)
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		fx := newJiraFixture(t)

		_, err := fx.service.Sync(ctx, &SyncJiraRequest{Period: "2026-03"}, fx.manager.ID)
		if !IsPermissionError(err) {
			t.Errorf("Expected permission error, got %v", err)
		}
	})

	t.Run("NotConfigured", func(t *testing.T) {
		fx := newJiraFixture(t)

		_, err := fx.service.Sync(ctx, &SyncJiraRequest{Period: "2026-03"}, fx.admin.ID)
		if !errors.Is(err, ErrJiraNotConfigured) {
			t.Errorf("Expected ErrJiraNotConfigured, got %v", err)
		}
	})

	t.Run("BadPeriod", func(t *testing.T) {
		fx := newJiraFixture(t)
		service, _ := fx.syncService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("Server must not be called for an invalid period")
		})

		if _, err := service.Sync(ctx, &SyncJiraRequest{Period: "March 2026"}, fx.admin.ID); err == nil {
			t.Error("Expected an error for a malformed period")
		}
	})
}

func TestJiraService_GetStats(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerManagerAndAdminRead", func(t *testing.T) {
		fx := newJiraFixture(t)
		fx.seedStat(fx.employee.ID, "2026-03", 7)

		for _, requester := range []*models.User{fx.employee, fx.manager, fx.admin} {
			stat, err := fx.service.GetStats(ctx, fx.employee.ID, "2026-03", requester.ID)
			if err != nil {
				t.Fatalf("GetStats as %s failed: %v", requester.Email, err)
			}
			if stat.IssuesResolved != 7 {
				t.Errorf("Expected 7 resolved, got %d", stat.IssuesResolved)
			}
		}
	})

	t.Run("PeerDenied", func(t *testing.T) {
		fx := newJiraFixture(t)
		fx.seedStat(fx.employee.ID, "2026-03", 7)

		if _, err := fx.service.GetStats(ctx, fx.employee.ID, "2026-03", fx.peer.ID); !IsPermissionError(err) {
			t.Errorf("Expected permission error, got %v", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		fx := newJiraFixture(t)

		if _, err := fx.service.GetStats(ctx, fx.employee.ID, "2026-03", fx.admin.ID); !errors.Is(err, ErrJiraStatsNotFound) {
			t.Errorf("Expected ErrJiraStatsNotFound, got %v", err)
		}
	})

	t.Run("BadPeriod", func(t *testing.T) {
		fx := newJiraFixture(t)

		if _, err := fx.service.GetStats(ctx, fx.employee.ID, "bad", fx.employee.ID); err == nil {
			t.Error("Expected an error for a malformed period")
		}
	})
}

func TestJiraService_GetHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("NewestFirstWithDefaultLimit", func(t *testing.T) {
		fx := newJiraFixture(t)
		fx.seedStat(fx.employee.ID, "2026-01", 1)
		fx.seedStat(fx.employee.ID, "2026-02", 2)
		fx.seedStat(fx.employee.ID, "2026-03", 3)
		fx.seedStat(fx.peer.ID, "2026-03", 9)

		history, err := fx.service.GetHistory(ctx, fx.employee.ID, 0, fx.employee.ID)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("Expected 3 periods, got %d", len(history))
		}
		if history[0].Period != "2026-03" {
			t.Errorf("Expected newest period first, got %s", history[0].Period)
		}
	})

	t.Run("LimitApplied", func(t *testing.T) {
		fx := newJiraFixture(t)
		fx.seedStat(fx.employee.ID, "2026-01", 1)
		fx.seedStat(fx.employee.ID, "2026-02", 2)
		fx.seedStat(fx.employee.ID, "2026-03", 3)

		history, err := fx.service.GetHistory(ctx, fx.employee.ID, 2, fx.employee.ID)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(history) != 2 {
			t.Errorf("Expected 2 periods, got %d", len(history))
		}
	})

	t.Run("PeerDenied", func(t *testing.T) {
		fx := newJiraFixture(t)

		if _, err := fx.service.GetHistory(ctx, fx.employee.ID, 0, fx.peer.ID); !IsPermissionError(err) {
			t.Errorf("Expected permission error, got %v", err)
		}
	})
}
