package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
)

// stubAuthService lets middleware tests control ValidateSession outcomes.
type stubAuthService struct {
	user        *models.User
	session     *models.Session
	validateErr error
	validated   []string
}

func (s *stubAuthService) Login(ctx context.Context, req *services.LoginRequest, userAgent, clientIP string) (*services.LoginResponse, error) {
	return nil, services.ErrInvalidCredentials
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error { return nil }

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, req *services.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, *models.Session, error) {
	s.validated = append(s.validated, sessionID)
	if s.validateErr != nil {
		return nil, nil, s.validateErr
	}
	return s.user, s.session, nil
}

func (s *stubAuthService) ListSessions(ctx context.Context, userID, currentSessionID string) (*services.SessionListResponse, error) {
	return &services.SessionListResponse{}, nil
}

func (s *stubAuthService) RevokeSession(ctx context.Context, sessionID, userID string) error {
	return nil
}

func (s *stubAuthService) CleanupExpired(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubAuthService) CountActiveSessions(ctx context.Context) (int64, error) { return 0, nil }

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newMiddlewareRouter(svc services.AuthService, tokens *auth.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := NewAuthMiddleware(tokens, svc, testLogger())

	router := gin.New()
	router.GET("/protected", mw.Authenticate(), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	router.GET("/manager-only", mw.Authenticate(), mw.RequireRole(models.RoleManager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/admin-only", mw.Authenticate(), mw.RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: "user-1", Role: models.RoleEmployee, Active: true}
	session := &models.Session{ID: "sess-1", UserID: user.ID}
	tokens := auth.NewTokenManager("middleware-test-secret", time.Hour)

	t.Run("MissingHeader", func(t *testing.T) {
		svc := &stubAuthService{user: user, session: session}
		router := newMiddlewareRouter(svc, tokens)

		w := doRequest(router, http.MethodGet, "/protected", "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
		if resp := decodeError(t, w); resp.Message != "Authorization header missing" {
			t.Errorf("Unexpected message: %q", resp.Message)
		}
		if len(svc.validated) != 0 {
			t.Errorf("Session lookup should not run without a token")
		}
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		svc := &stubAuthService{user: user, session: session}
		router := newMiddlewareRouter(svc, tokens)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		svc := &stubAuthService{user: user, session: session}
		router := newMiddlewareRouter(svc, tokens)

		// A token signed with a different secret must be rejected before
		// any session lookup happens.
		foreign := auth.NewTokenManager("some-other-secret", time.Hour)
		token, _, err := foreign.Issue(user, session.ID)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/protected", token)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
		if len(svc.validated) != 0 {
			t.Errorf("Session lookup ran for a forged token")
		}
	})

	t.Run("ExpiredSession", func(t *testing.T) {
		svc := &stubAuthService{validateErr: services.ErrSessionExpired}
		router := newMiddlewareRouter(svc, tokens)

		token, _, err := tokens.Issue(user, session.ID)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/protected", token)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
		if resp := decodeError(t, w); resp.Message != "Session expired, please log in again" {
			t.Errorf("Unexpected message: %q", resp.Message)
		}
	})

	t.Run("RevokedSession", func(t *testing.T) {
		svc := &stubAuthService{validateErr: services.ErrSessionNotFound}
		router := newMiddlewareRouter(svc, tokens)

		token, _, err := tokens.Issue(user, session.ID)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/protected", token)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
	})

	t.Run("DeactivatedUser", func(t *testing.T) {
		svc := &stubAuthService{validateErr: services.ErrUserInactive}
		router := newMiddlewareRouter(svc, tokens)

		token, _, err := tokens.Issue(user, session.ID)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/protected", token)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
		if resp := decodeError(t, w); resp.Message != "User account is deactivated" {
			t.Errorf("Unexpected message: %q", resp.Message)
		}
	})

	t.Run("ValidTokenAndSession", func(t *testing.T) {
		svc := &stubAuthService{user: user, session: session}
		router := newMiddlewareRouter(svc, tokens)

		token, _, err := tokens.Issue(user, session.ID)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/protected", token)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var body struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.UserID != user.ID {
			t.Errorf("Handler saw user %q, want %q", body.UserID, user.ID)
		}
		if len(svc.validated) != 1 || svc.validated[0] != session.ID {
			t.Errorf("Expected one session validation for %q, got %v", session.ID, svc.validated)
		}
	})
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-test-secret", time.Hour)

	cases := []struct {
		name string
		role models.UserRole
		path string
		want int
	}{
		{"EmployeeDeniedManagerRoute", models.RoleEmployee, "/manager-only", http.StatusForbidden},
		{"ManagerAllowedManagerRoute", models.RoleManager, "/manager-only", http.StatusOK},
		{"AdminAllowedManagerRoute", models.RoleAdmin, "/manager-only", http.StatusOK},
		{"EmployeeDeniedAdminRoute", models.RoleEmployee, "/admin-only", http.StatusForbidden},
		{"ManagerDeniedAdminRoute", models.RoleManager, "/admin-only", http.StatusForbidden},
		{"AdminAllowedAdminRoute", models.RoleAdmin, "/admin-only", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := &models.User{ID: "user-1", Role: tc.role, Active: true}
			session := &models.Session{ID: "sess-1", UserID: user.ID}
			svc := &stubAuthService{user: user, session: session}
			router := newMiddlewareRouter(svc, tokens)

			token, _, err := tokens.Issue(user, session.ID)
			if err != nil {
				t.Fatalf("Failed to issue token: %v", err)
			}

			w := doRequest(router, http.MethodGet, tc.path, token)

			if w.Code != tc.want {
				t.Errorf("%s as %s: expected %d, got %d", tc.path, tc.role, tc.want, w.Code)
			}
		})
	}
}
