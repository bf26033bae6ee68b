package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves spreadsheet export endpoints.
type ExportHandler struct {
	BaseHandler
	exportService services.ExportService
}

func NewExportHandler(exportService services.ExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler:   NewBaseHandler(logger),
		exportService: exportService,
	}
}

// ExportAttendance streams a month of attendance as an xlsx file
// @Summary Export attendance
// @Description One row per user and day; managers get their reports, admins everyone
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param period query string false "Month (YYYY-MM, default: current)"
// @Param team_id query int false "Restrict to one team"
// @Success 200 {file} binary "Spreadsheet"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /exports/attendance [get]
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	period := c.DefaultQuery("period", time.Now().UTC().Format("2006-01"))

	var teamID *uint
	if raw := c.Query("team_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid team_id parameter",
			})
			return
		}
		parsed := uint(id)
		teamID = &parsed
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	f, filename, err := h.exportService.ExportAttendanceMonth(c.Request.Context(), period, teamID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer f.Close()

	h.LogRequest(c, "Attendance export generated", "period", period, "filename", filename)

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(c.Writer); err != nil {
		h.LogError(c, err, "Failed to stream attendance export")
	}
}

// ExportCycleSummary streams a cycle progress report as an xlsx file
// @Summary Export cycle summary
// @Description Per-user feedback and assessment progress for a cycle; admin only
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Cycle ID"
// @Success 200 {file} binary "Spreadsheet"
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Router /exports/cycles/{id} [get]
func (h *ExportHandler) ExportCycleSummary(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	f, filename, err := h.exportService.ExportCycleSummary(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer f.Close()

	h.LogRequest(c, "Cycle export generated", "cycle_id", id, "filename", filename)

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(c.Writer); err != nil {
		h.LogError(c, err, "Failed to stream cycle export")
	}
}

func (h *ExportHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrCycleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Review cycle not found",
		})
	case errors.Is(err, services.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Team not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
