package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
)

// MaintenanceHandler serves the unauthenticated test-support routes. The
// router only mounts it outside production or when ENABLE_TEST_ROUTES is set.
type MaintenanceHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewMaintenanceHandler(authService services.AuthService, logger utils.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
	}
}

// CleanupSessions deletes expired sessions immediately
// @Summary Cleanup sessions
// @Description Runs the periodic session cleanup on demand; test environments only
// @Tags maintenance
// @Produce json
// @Success 200 {object} map[string]int64 "Number of sessions deleted"
// @Router /test/cleanup-sessions [post]
func (h *MaintenanceHandler) CleanupSessions(c *gin.Context) {
	deleted, err := h.authService.CleanupExpired(c.Request.Context())
	if err != nil {
		h.LogError(c, err, "Session cleanup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
		return
	}

	h.LogRequest(c, "Session cleanup ran", "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// CountSessions reports the number of live sessions
// @Summary Count sessions
// @Description Returns the number of unexpired sessions; test environments only
// @Tags maintenance
// @Produce json
// @Success 200 {object} map[string]int64 "Number of active sessions"
// @Router /test/sessions/count [get]
func (h *MaintenanceHandler) CountSessions(c *gin.Context) {
	active, err := h.authService.CountActiveSessions(c.Request.Context())
	if err != nil {
		h.LogError(c, err, "Session count failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": active})
}
