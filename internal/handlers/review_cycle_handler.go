package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// ReviewCycleHandler serves review cycle lifecycle endpoints.
type ReviewCycleHandler struct {
	BaseHandler
	cycleService        services.ReviewCycleService
	notificationService services.NotificationEventService
}

func NewReviewCycleHandler(cycleService services.ReviewCycleService, notificationService services.NotificationEventService, logger utils.Logger) *ReviewCycleHandler {
	return &ReviewCycleHandler{
		BaseHandler:         NewBaseHandler(logger),
		cycleService:        cycleService,
		notificationService: notificationService,
	}
}

// ListCycles lists review cycles
// @Summary List review cycles
// @Description Get a paginated list of review cycles
// @Tags review-cycles
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param status query string false "Filter by status (draft, open, closed)"
// @Success 200 {object} services.CycleListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /review-cycles [get]
func (h *ReviewCycleHandler) ListCycles(c *gin.Context) {
	filters := repositories.CycleFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filters.Limit, filters.Offset = h.parsePagination(c)

	if raw := c.Query("status"); raw != "" {
		status := models.CycleStatus(raw)
		filters.Status = &status
	}

	resp, err := h.cycleService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetOpenCycle returns the currently open review cycle
// @Summary Get open cycle
// @Description Returns the single open cycle, or 404 when none is open
// @Tags review-cycles
// @Produce json
// @Success 200 {object} services.CycleResponse
// @Failure 404 {object} ErrorResponse "No open cycle"
// @Router /review-cycles/open [get]
func (h *ReviewCycleHandler) GetOpenCycle(c *gin.Context) {
	resp, err := h.cycleService.GetOpen(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCycle retrieves a review cycle by ID
// @Summary Get review cycle
// @Description Retrieves a review cycle by its ID
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 200 {object} services.CycleResponse
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Router /review-cycles/{id} [get]
func (h *ReviewCycleHandler) GetCycle(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	resp, err := h.cycleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateCycle creates a review cycle in draft status
// @Summary Create review cycle
// @Description Creates a draft review cycle; admin only
// @Tags review-cycles
// @Accept json
// @Produce json
// @Param request body services.CreateCycleRequest true "Cycle payload"
// @Success 201 {object} services.CycleResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Cycle name already in use"
// @Router /review-cycles [post]
func (h *ReviewCycleHandler) CreateCycle(c *gin.Context) {
	var req services.CreateCycleRequest
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

	resp, err := h.cycleService.Create(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Review cycle created", "cycle_id", resp.ID, "name", req.Name)
	c.JSON(http.StatusCreated, resp)
}

// UpdateCycle updates a draft review cycle
// @Summary Update review cycle
// @Description Updates cycle fields; only drafts can be edited
// @Tags review-cycles
// @Accept json
// @Produce json
// @Param id path uint true "Cycle ID"
// @Param request body services.UpdateCycleRequest true "Cycle fields"
// @Success 200 {object} services.CycleResponse
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Failure 409 {object} ErrorResponse "Cycle is not a draft"
// @Router /review-cycles/{id} [put]
func (h *ReviewCycleHandler) UpdateCycle(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateCycleRequest
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

	resp, err := h.cycleService.Update(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteCycle deletes a draft review cycle
// @Summary Delete review cycle
// @Description Deletes a cycle; only drafts can be deleted
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Failure 409 {object} ErrorResponse "Cycle is not a draft"
// @Router /review-cycles/{id} [delete]
func (h *ReviewCycleHandler) DeleteCycle(c *gin.Context) {
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

	if err := h.cycleService.Delete(c.Request.Context(), id, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Review cycle deleted", "cycle_id", id)
	c.Status(http.StatusNoContent)
}

// OpenCycle transitions a draft cycle to open
// @Summary Open review cycle
// @Description Opens a draft cycle; only one cycle may be open at a time
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 200 {object} services.CycleResponse
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Failure 409 {object} ErrorResponse "Another cycle is already open"
// @Router /review-cycles/{id}/open [post]
func (h *ReviewCycleHandler) OpenCycle(c *gin.Context) {
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

	resp, err := h.cycleService.Open(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Review cycle opened", "cycle_id", id)
	c.JSON(http.StatusOK, resp)
}

// CloseCycle transitions an open cycle to closed
// @Summary Close review cycle
// @Description Closes an open cycle; closed cycles are terminal
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 200 {object} services.CycleResponse
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Failure 409 {object} ErrorResponse "Cycle is not open"
// @Router /review-cycles/{id}/close [post]
func (h *ReviewCycleHandler) CloseCycle(c *gin.Context) {
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

	resp, err := h.cycleService.Close(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Review cycle closed", "cycle_id", id)
	c.JSON(http.StatusOK, resp)
}

// GetCycleStats returns participation statistics for a cycle
// @Summary Cycle statistics
// @Description Returns request counts by status, submission totals and completion rate
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 200 {object} repositories.CycleStats
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Router /review-cycles/{id}/stats [get]
func (h *ReviewCycleHandler) GetCycleStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.cycleService.GetStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SendReminders publishes reminder events for pending feedback requests
// @Summary Send feedback reminders
// @Description Publishes a reminder event per pending request in the cycle; admin only
// @Tags review-cycles
// @Produce json
// @Param id path uint true "Cycle ID"
// @Success 200 {object} map[string]int "Number of reminders sent"
// @Failure 404 {object} ErrorResponse "Cycle not found"
// @Router /review-cycles/{id}/reminders [post]
func (h *ReviewCycleHandler) SendReminders(c *gin.Context) {
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

	sent, err := h.notificationService.SendFeedbackReminders(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Feedback reminders sent", "cycle_id", id, "sent", sent)
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *ReviewCycleHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrCycleNameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Cycle name already in use",
		})
	case errors.Is(err, services.ErrOpenCycleExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Another cycle is already open",
		})
	case errors.Is(err, services.ErrCycleNotDraft):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Only draft cycles can be modified",
		})
	case errors.Is(err, services.ErrCycleNotOpen):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Cycle is not open",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
