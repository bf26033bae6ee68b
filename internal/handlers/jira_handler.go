package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// JiraHandler serves Jira statistics endpoints.
type JiraHandler struct {
	BaseHandler
	jiraService services.JiraService
}

func NewJiraHandler(jiraService services.JiraService, logger utils.Logger) *JiraHandler {
	return &JiraHandler{
		BaseHandler: NewBaseHandler(logger),
		jiraService: jiraService,
	}
}

// Sync pulls issue statistics from Jira for a month
// @Summary Sync Jira statistics
// @Description Fetches per-user issue counts from Jira and upserts them; admin only
// @Tags jira
// @Accept json
// @Produce json
// @Param request body services.SyncJiraRequest true "Sync parameters"
// @Success 200 {object} services.JiraSyncResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 503 {object} ErrorResponse "Jira integration not configured"
// @Router /jira/sync [post]
func (h *JiraHandler) Sync(c *gin.Context) {
	var req services.SyncJiraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	result, err := h.jiraService.Sync(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Jira sync finished", "period", result.Period,
		"synced", result.Synced, "skipped", result.Skipped, "failed", result.Failed)
	c.JSON(http.StatusOK, result)
}

// GetStats returns one user's Jira statistics for a month
// @Summary Get Jira statistics
// @Description Returns synced issue counts for a user and month
// @Tags jira
// @Produce json
// @Param user_id path string true "User ID"
// @Param period query string false "Month (YYYY-MM, default: current)"
// @Success 200 {object} models.JiraUserStat
// @Failure 404 {object} ErrorResponse "No statistics for this period"
// @Router /jira/stats/{user_id} [get]
func (h *JiraHandler) GetStats(c *gin.Context) {
	targetID := c.Param("user_id")
	period := c.DefaultQuery("period", time.Now().UTC().Format("2006-01"))

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	stats, err := h.jiraService.GetStats(c.Request.Context(), targetID, period, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetHistory returns a user's recent Jira statistics
// @Summary Jira statistics history
// @Description Returns the most recent synced months for a user
// @Tags jira
// @Produce json
// @Param user_id path string true "User ID"
// @Param limit query int false "Months to return (default: 6, max: 24)"
// @Success 200 {array} models.JiraUserStat
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /jira/stats/{user_id}/history [get]
func (h *JiraHandler) GetHistory(c *gin.Context) {
	targetID := c.Param("user_id")

	limit := h.parseIntQuery(c, "limit", 6)
	if limit < 1 {
		limit = 6
	}
	if limit > 24 {
		limit = 24
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	history, err := h.jiraService.GetHistory(c.Request.Context(), targetID, limit, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *JiraHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrJiraNotConfigured):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Jira integration is not configured",
		})
	case errors.Is(err, services.ErrJiraStatsNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No Jira statistics for this period",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
