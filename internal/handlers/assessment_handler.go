package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// AssessmentHandler serves self-assessment endpoints.
type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
}

func NewAssessmentHandler(assessmentService services.AssessmentService, logger utils.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
	}
}

// SaveDraft creates or overwrites the caller's draft for a cycle
// @Summary Save assessment draft
// @Description Upserts the caller's self-assessment draft while the cycle is open
// @Tags assessments
// @Accept json
// @Produce json
// @Param request body services.SaveAssessmentRequest true "Draft payload"
// @Success 200 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Already submitted or cycle closed"
// @Router /assessments/draft [put]
func (h *AssessmentHandler) SaveDraft(c *gin.Context) {
	var req services.SaveAssessmentRequest
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

	resp, err := h.assessmentService.SaveDraft(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Assessment draft saved", "cycle_id", req.CycleID)
	c.JSON(http.StatusOK, resp)
}

// Submit locks the caller's draft for a cycle
// @Summary Submit assessment
// @Description Marks the caller's draft as submitted; no further edits are allowed
// @Tags assessments
// @Produce json
// @Param cycle_id path uint true "Cycle ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 404 {object} ErrorResponse "No draft to submit"
// @Failure 409 {object} ErrorResponse "Already submitted or cycle closed"
// @Router /assessments/cycles/{cycle_id}/submit [post]
func (h *AssessmentHandler) Submit(c *gin.Context) {
	cycleID := h.parseIDParam(c, "cycle_id")
	if cycleID == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	resp, err := h.assessmentService.Submit(c.Request.Context(), cycleID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Assessment submitted", "cycle_id", cycleID)
	c.JSON(http.StatusOK, resp)
}

// GetOwn returns the caller's assessment for a cycle
// @Summary Get own assessment
// @Description Returns the caller's draft or submitted assessment for the cycle
// @Tags assessments
// @Produce json
// @Param cycle_id path uint true "Cycle ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 404 {object} ErrorResponse "No assessment for this cycle"
// @Router /assessments/cycles/{cycle_id}/me [get]
func (h *AssessmentHandler) GetOwn(c *gin.Context) {
	cycleID := h.parseIDParam(c, "cycle_id")
	if cycleID == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	resp, err := h.assessmentService.GetOwn(c.Request.Context(), cycleID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetForUser returns a user's submitted assessment for a cycle
// @Summary Get user assessment
// @Description Returns a submitted assessment; drafts stay private to their author
// @Tags assessments
// @Produce json
// @Param cycle_id path uint true "Cycle ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "No submitted assessment"
// @Router /assessments/cycles/{cycle_id}/users/{user_id} [get]
func (h *AssessmentHandler) GetForUser(c *gin.Context) {
	cycleID := h.parseIDParam(c, "cycle_id")
	if cycleID == 0 {
		return
	}
	targetID := c.Param("user_id")

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	resp, err := h.assessmentService.GetForUser(c.Request.Context(), targetID, cycleID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListByCycle lists submitted assessments in a cycle
// @Summary List assessments
// @Description Managers see their reports' submitted assessments, admins see all
// @Tags assessments
// @Produce json
// @Param cycle_id path uint true "Cycle ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} services.AssessmentListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /assessments/cycles/{cycle_id} [get]
func (h *AssessmentHandler) ListByCycle(c *gin.Context) {
	cycleID := h.parseIDParam(c, "cycle_id")
	if cycleID == 0 {
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	limit, offset := h.parsePagination(c)

	resp, err := h.assessmentService.ListByCycle(c.Request.Context(), cycleID, limit, offset, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AssessmentHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})
	case errors.Is(err, services.ErrCycleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Review cycle not found",
		})
	case errors.Is(err, services.ErrAssessmentSubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assessment has already been submitted",
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
