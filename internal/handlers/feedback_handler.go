package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// FeedbackHandler serves feedback request and submission endpoints.
type FeedbackHandler struct {
	BaseHandler
	feedbackService services.FeedbackService
}

func NewFeedbackHandler(feedbackService services.FeedbackService, logger utils.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		BaseHandler:     NewBaseHandler(logger),
		feedbackService: feedbackService,
	}
}

// CreateRequest creates a feedback request
// @Summary Create feedback request
// @Description Asks a reviewer for feedback about a reviewee in the open cycle
// @Tags feedback
// @Accept json
// @Produce json
// @Param request body services.CreateFeedbackRequest true "Request payload"
// @Success 201 {object} services.FeedbackRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Duplicate or self-review"
// @Router /feedback/requests [post]
func (h *FeedbackHandler) CreateRequest(c *gin.Context) {
	var req services.CreateFeedbackRequest
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

	resp, err := h.feedbackService.CreateRequest(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Feedback request created", "request_id", resp.ID, "reviewer_id", req.ReviewerID)
	c.JSON(http.StatusCreated, resp)
}

// ListRequests lists feedback requests visible to the caller
// @Summary List feedback requests
// @Description Without filters returns the caller's inbox of requests to answer
// @Tags feedback
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param cycle_id query int false "Filter by cycle"
// @Param reviewer_id query string false "Filter by reviewer"
// @Param reviewee_id query string false "Filter by reviewee"
// @Param kind query string false "Filter by kind (colleague, manager)"
// @Param status query string false "Filter by status (pending, submitted, declined)"
// @Success 200 {object} services.FeedbackRequestListResponse
// @Failure 403 {object} ErrorResponse "Foreign filter denied"
// @Router /feedback/requests [get]
func (h *FeedbackHandler) ListRequests(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := h.parseRequestFilters(c)

	resp, err := h.feedbackService.ListRequests(c.Request.Context(), filters, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetRequest retrieves a feedback request by ID
// @Summary Get feedback request
// @Description Retrieves a request; visible to its reviewer, reviewee, their manager and admins
// @Tags feedback
// @Produce json
// @Param id path uint true "Request ID"
// @Success 200 {object} services.FeedbackRequestResponse
// @Failure 404 {object} ErrorResponse "Request not found"
// @Router /feedback/requests/{id} [get]
func (h *FeedbackHandler) GetRequest(c *gin.Context) {
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

	resp, err := h.feedbackService.GetRequest(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeclineRequest declines a pending feedback request
// @Summary Decline feedback request
// @Description The reviewer declines a pending request with an optional reason
// @Tags feedback
// @Accept json
// @Produce json
// @Param id path uint true "Request ID"
// @Param request body services.DeclineFeedbackRequest true "Decline reason"
// @Success 200 {object} services.FeedbackRequestResponse
// @Failure 404 {object} ErrorResponse "Request not found"
// @Failure 409 {object} ErrorResponse "Request is not pending"
// @Router /feedback/requests/{id}/decline [post]
func (h *FeedbackHandler) DeclineRequest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.DeclineFeedbackRequest
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

	resp, err := h.feedbackService.DeclineRequest(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Feedback request declined", "request_id", id)
	c.JSON(http.StatusOK, resp)
}

// SubmitFeedback submits feedback for a pending request
// @Summary Submit feedback
// @Description The reviewer answers a pending request; the cycle must still be open
// @Tags feedback
// @Accept json
// @Produce json
// @Param id path uint true "Request ID"
// @Param request body services.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} models.Feedback
// @Failure 404 {object} ErrorResponse "Request not found"
// @Failure 409 {object} ErrorResponse "Request already answered"
// @Router /feedback/requests/{id}/submit [post]
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitFeedbackRequest
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

	feedback, err := h.feedbackService.Submit(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Feedback submitted", "request_id", id, "feedback_id", feedback.ID)
	c.JSON(http.StatusCreated, feedback)
}

// ListFeedback lists submitted feedback visible to the caller
// @Summary List feedback
// @Description Without filters returns feedback the caller wrote
// @Tags feedback
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param cycle_id query int false "Filter by cycle"
// @Param reviewer_id query string false "Filter by reviewer"
// @Param reviewee_id query string false "Filter by reviewee"
// @Param kind query string false "Filter by kind (colleague, manager)"
// @Success 200 {object} services.FeedbackListResponse
// @Failure 403 {object} ErrorResponse "Foreign filter denied"
// @Router /feedback [get]
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := repositories.FeedbackFilters{}
	filters.Limit, filters.Offset = h.parsePagination(c)

	if raw := c.Query("cycle_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			cycleID := uint(id)
			filters.CycleID = &cycleID
		}
	}
	if raw := c.Query("reviewer_id"); raw != "" {
		reviewerID := raw
		filters.ReviewerID = &reviewerID
	}
	if raw := c.Query("reviewee_id"); raw != "" {
		revieweeID := raw
		filters.RevieweeID = &revieweeID
	}
	if raw := c.Query("kind"); raw != "" {
		kind := models.FeedbackKind(raw)
		filters.Kind = &kind
	}

	resp, err := h.feedbackService.ListFeedback(c.Request.Context(), filters, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetFeedback retrieves submitted feedback by ID
// @Summary Get feedback
// @Description Visible to the reviewer, the reviewee, the reviewee's manager and admins
// @Tags feedback
// @Produce json
// @Param id path uint true "Feedback ID"
// @Success 200 {object} models.Feedback
// @Failure 404 {object} ErrorResponse "Feedback not found"
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
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

	feedback, err := h.feedbackService.GetFeedback(c.Request.Context(), id, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// ListReceived lists feedback received by a user
// @Summary List received feedback
// @Description Lists feedback about a user, optionally narrowed to one cycle
// @Tags feedback
// @Produce json
// @Param user_id path string true "Reviewee ID"
// @Param cycle_id query int false "Filter by cycle"
// @Success 200 {array} models.Feedback
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /feedback/received/{user_id} [get]
func (h *FeedbackHandler) ListReceived(c *gin.Context) {
	revieweeID := c.Param("user_id")

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	var cycleID uint
	if raw := c.Query("cycle_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			cycleID = uint(id)
		}
	}

	feedback, err := h.feedbackService.ListReceived(c.Request.Context(), revieweeID, cycleID, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

func (h *FeedbackHandler) parseRequestFilters(c *gin.Context) repositories.FeedbackRequestFilters {
	filters := repositories.FeedbackRequestFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filters.Limit, filters.Offset = h.parsePagination(c)

	if raw := c.Query("cycle_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			cycleID := uint(id)
			filters.CycleID = &cycleID
		}
	}
	if raw := c.Query("reviewer_id"); raw != "" {
		reviewerID := raw
		filters.ReviewerID = &reviewerID
	}
	if raw := c.Query("reviewee_id"); raw != "" {
		revieweeID := raw
		filters.RevieweeID = &revieweeID
	}
	if raw := c.Query("kind"); raw != "" {
		kind := models.FeedbackKind(raw)
		filters.Kind = &kind
	}
	if raw := c.Query("status"); raw != "" {
		status := models.FeedbackRequestStatus(raw)
		filters.Status = &status
	}

	return filters
}

func (h *FeedbackHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrFeedbackRequestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Feedback request not found",
		})
	case errors.Is(err, services.ErrFeedbackNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Feedback not found",
		})
	case errors.Is(err, services.ErrCycleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Review cycle not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "An equivalent request already exists in this cycle",
		})
	case errors.Is(err, services.ErrRequestNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Request has already been answered or declined",
		})
	case errors.Is(err, services.ErrSelfReview):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Reviewer and reviewee must differ",
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
