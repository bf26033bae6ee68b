package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// AttendanceHandler serves attendance tracking endpoints.
type AttendanceHandler struct {
	BaseHandler
	attendanceService services.AttendanceService
}

func NewAttendanceHandler(attendanceService services.AttendanceService, logger utils.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler:       NewBaseHandler(logger),
		attendanceService: attendanceService,
	}
}

// UpsertRecord creates or overwrites the caller's attendance for a day
// @Summary Upsert attendance
// @Description One record per user per day; a second write for the same day overwrites
// @Tags attendance
// @Accept json
// @Produce json
// @Param request body services.UpsertAttendanceRequest true "Attendance payload"
// @Success 200 {object} models.AttendanceRecord
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /attendance [put]
func (h *AttendanceHandler) UpsertRecord(c *gin.Context) {
	var req services.UpsertAttendanceRequest
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

	record, err := h.attendanceService.Upsert(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord deletes an attendance record
// @Summary Delete attendance record
// @Description Owners delete their own records, admins anyone's
// @Tags attendance
// @Produce json
// @Param id path uint true "Record ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Record not found"
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) DeleteRecord(c *gin.Context) {
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

	if err := h.attendanceService.Delete(c.Request.Context(), id, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListRecords lists attendance records visible to the caller
// @Summary List attendance
// @Description Employees see their own records, managers their reports, admins all
// @Tags attendance
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param user_id query string false "Filter by user"
// @Param team_id query int false "Filter by team"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} services.AttendanceListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance [get]
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := h.parseAttendanceFilters(c)

	resp, err := h.attendanceService.List(c.Request.Context(), filters, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSummary aggregates one user's month by status
// @Summary Attendance summary
// @Description Per-status day counts for one user and month
// @Tags attendance
// @Produce json
// @Param user_id path string true "User ID"
// @Param period query string false "Month (YYYY-MM, default: current)"
// @Success 200 {object} repositories.AttendanceSummary
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance/summary/{user_id} [get]
func (h *AttendanceHandler) GetSummary(c *gin.Context) {
	targetID := c.Param("user_id")
	period := c.DefaultQuery("period", time.Now().UTC().Format("2006-01"))

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	summary, err := h.attendanceService.GetSummary(c.Request.Context(), targetID, period, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *AttendanceHandler) parseAttendanceFilters(c *gin.Context) repositories.AttendanceFilters {
	var filters repositories.AttendanceFilters
	filters.Limit, filters.Offset = h.parsePagination(c)

	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if status.Valid() {
			filters.Status = &status
		}
	}
	if raw := c.Query("user_id"); raw != "" {
		userID := raw
		filters.UserID = &userID
	}
	if raw := c.Query("team_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			teamID := uint(id)
			filters.TeamID = &teamID
		}
	}
	if raw := c.Query("date_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.DateFrom = &t
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}

func (h *AttendanceHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrAttendanceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attendance record not found",
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
