package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
)

// AuthMiddleware verifies bearer tokens and the DB session behind them.
type AuthMiddleware struct {
	tokens      *auth.TokenManager
	authService services.AuthService
	logger      utils.Logger
}

func NewAuthMiddleware(tokens *auth.TokenManager, authService services.AuthService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		authService: authService,
		logger:      logger,
	}
}

// Authenticate extracts the bearer token, verifies its signature and claims,
// and validates the backing session. Expired or revoked sessions reject the
// request even when the token itself is still valid. On success the user,
// role and session ID are stored on the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header missing",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		user, session, err := m.authService.ValidateSession(c.Request.Context(), claims.SessionID)
		if err != nil {
			m.rejectSession(c, err)
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("session_id", session.ID)

		c.Next()
	}
}

func (m *AuthMiddleware) rejectSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Session expired, please log in again",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Session revoked or not found",
		})
	case errors.Is(err, services.ErrUserInactive):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User account is deactivated",
		})
	default:
		utils.FromContext(c, m.logger).Error("Session validation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
	c.Abort()
}

// RequireRole rejects authenticated requests whose role is below the minimum.
// Admins satisfy every minimum.
func (m *AuthMiddleware) RequireRole(minimum models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			c.Abort()
			return
		}

		role, ok := value.(models.UserRole)
		if !ok || !role.AtLeast(minimum) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserFromContext returns the authenticated user stored by Authenticate.
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}
	return user, nil
}

// GetUserIDFromContext returns the authenticated user's ID.
func GetUserIDFromContext(c *gin.Context) (string, error) {
	value, exists := c.Get("user_id")
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}
	id, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}
	return id, nil
}

// GetSessionIDFromContext returns the session ID backing the current request.
func GetSessionIDFromContext(c *gin.Context) (string, error) {
	value, exists := c.Get("session_id")
	if !exists {
		return "", fmt.Errorf("session ID not found in context")
	}
	id, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid session ID type in context")
	}
	return id, nil
}
