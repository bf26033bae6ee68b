package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
)

// DashboardHandler serves aggregated dashboard endpoints.
type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// GetSummary returns the caller's personal dashboard
// @Summary Personal dashboard
// @Description Open cycle, pending requests, assessment status and received feedback count
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardSummaryResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	resp, err := h.dashboardService.GetSummary(c.Request.Context(), userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTeamOverview returns the manager's team dashboard
// @Summary Team dashboard
// @Description Per-report progress in the open cycle; managers and admins only
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.TeamDashboardResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /dashboard/team [get]
func (h *DashboardHandler) GetTeamOverview(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	resp, err := h.dashboardService.GetTeamOverview(c.Request.Context(), userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAdminOverview returns the organization-wide dashboard
// @Summary Admin dashboard
// @Description Organization totals, cycle progress and per-team ratings; admin only
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.AdminDashboardResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /dashboard/admin [get]
func (h *DashboardHandler) GetAdminOverview(c *gin.Context) {
	resp, err := h.dashboardService.GetAdminOverview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) handleServiceError(c *gin.Context, err error) {
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
