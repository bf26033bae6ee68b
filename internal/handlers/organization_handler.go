package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
)

// TeamHandler serves team CRUD and membership endpoints.
type TeamHandler struct {
	BaseHandler
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService, logger utils.Logger) *TeamHandler {
	return &TeamHandler{
		BaseHandler: NewBaseHandler(logger),
		teamService: teamService,
	}
}

// ListTeams lists teams with optional filtering
// @Summary List teams
// @Description Get a paginated list of teams
// @Tags teams
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param q query string false "Search query (team name)"
// @Param business_unit_id query int false "Filter by business unit"
// @Success 200 {object} services.TeamListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /teams [get]
func (h *TeamHandler) ListTeams(c *gin.Context) {
	filters := repositories.TeamFilters{
		Query:     c.Query("q"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filters.Limit, filters.Offset = h.parsePagination(c)

	if raw := c.Query("business_unit_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			buID := uint(id)
			filters.BusinessUnitID = &buID
		}
	}

	resp, err := h.teamService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTeam retrieves a team by ID
// @Summary Get team
// @Description Retrieves a team, optionally with its member list
// @Tags teams
// @Produce json
// @Param id path uint true "Team ID"
// @Param with_members query bool false "Include member list"
// @Success 200 {object} services.TeamResponse
// @Failure 404 {object} ErrorResponse "Team not found"
// @Router /teams/{id} [get]
func (h *TeamHandler) GetTeam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	withMembers, _ := strconv.ParseBool(c.Query("with_members"))

	resp, err := h.teamService.GetByID(c.Request.Context(), id, withMembers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateTeam creates a new team
// @Summary Create team
// @Description Creates a team inside a business unit; admin only
// @Tags teams
// @Accept json
// @Produce json
// @Param request body services.CreateTeamRequest true "Team payload"
// @Success 201 {object} services.TeamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Team name already in use"
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req services.CreateTeamRequest
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

	resp, err := h.teamService.Create(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Team created", "team_id", resp.ID, "name", req.Name)
	c.JSON(http.StatusCreated, resp)
}

// UpdateTeam updates a team
// @Summary Update team
// @Description Updates team fields; admin only
// @Tags teams
// @Accept json
// @Produce json
// @Param id path uint true "Team ID"
// @Param request body services.UpdateTeamRequest true "Team fields"
// @Success 200 {object} services.TeamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Team not found"
// @Router /teams/{id} [put]
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTeamRequest
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

	resp, err := h.teamService.Update(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteTeam deletes an empty team
// @Summary Delete team
// @Description Deletes a team; rejected while members remain
// @Tags teams
// @Produce json
// @Param id path uint true "Team ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Team not found"
// @Failure 409 {object} ErrorResponse "Team not empty"
// @Router /teams/{id} [delete]
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
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

	if err := h.teamService.Delete(c.Request.Context(), id, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Team deleted", "team_id", id)
	c.Status(http.StatusNoContent)
}

// AssignMember adds a user to a team
// @Summary Assign team member
// @Description Moves the user into the team; admin only
// @Tags teams
// @Produce json
// @Param id path uint true "Team ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Team or user not found"
// @Router /teams/{id}/members/{user_id} [put]
func (h *TeamHandler) AssignMember(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	memberID := c.Param("user_id")

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	if err := h.teamService.AssignMember(c.Request.Context(), id, memberID, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Team member assigned", "team_id", id, "member_id", memberID)
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Member assigned successfully",
	})
}

// RemoveMember removes a user from a team
// @Summary Remove team member
// @Description Clears the user's team; admin only
// @Tags teams
// @Produce json
// @Param id path uint true "Team ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Team or user not found"
// @Router /teams/{id}/members/{user_id} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	memberID := c.Param("user_id")

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), id, memberID, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Team member removed", "team_id", id, "member_id", memberID)
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Member removed successfully",
	})
}

func (h *TeamHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Team not found",
		})
	case errors.Is(err, services.ErrBusinessUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Business unit not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrTeamNameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Team name already in use",
		})
	case errors.Is(err, services.ErrTeamNotEmpty):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Team still has members",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// BusinessUnitHandler serves business unit CRUD endpoints.
type BusinessUnitHandler struct {
	BaseHandler
	buService services.BusinessUnitService
}

func NewBusinessUnitHandler(buService services.BusinessUnitService, logger utils.Logger) *BusinessUnitHandler {
	return &BusinessUnitHandler{
		BaseHandler: NewBaseHandler(logger),
		buService:   buService,
	}
}

// ListBusinessUnits lists business units
// @Summary List business units
// @Description Get a paginated list of business units with team counts
// @Tags business-units
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} services.BusinessUnitListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /business-units [get]
func (h *BusinessUnitHandler) ListBusinessUnits(c *gin.Context) {
	limit, offset := h.parsePagination(c)

	resp, err := h.buService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetBusinessUnit retrieves a business unit by ID
// @Summary Get business unit
// @Description Retrieves a business unit, optionally with its teams
// @Tags business-units
// @Produce json
// @Param id path uint true "Business unit ID"
// @Param with_teams query bool false "Include team list"
// @Success 200 {object} services.BusinessUnitResponse
// @Failure 404 {object} ErrorResponse "Business unit not found"
// @Router /business-units/{id} [get]
func (h *BusinessUnitHandler) GetBusinessUnit(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	withTeams, _ := strconv.ParseBool(c.Query("with_teams"))

	resp, err := h.buService.GetByID(c.Request.Context(), id, withTeams)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateBusinessUnit creates a new business unit
// @Summary Create business unit
// @Description Creates a business unit; admin only
// @Tags business-units
// @Accept json
// @Produce json
// @Param request body services.CreateBusinessUnitRequest true "Business unit payload"
// @Success 201 {object} services.BusinessUnitResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Name already in use"
// @Router /business-units [post]
func (h *BusinessUnitHandler) CreateBusinessUnit(c *gin.Context) {
	var req services.CreateBusinessUnitRequest
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

	resp, err := h.buService.Create(c.Request.Context(), &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Business unit created", "business_unit_id", resp.ID, "name", req.Name)
	c.JSON(http.StatusCreated, resp)
}

// UpdateBusinessUnit updates a business unit
// @Summary Update business unit
// @Description Updates business unit fields; admin only
// @Tags business-units
// @Accept json
// @Produce json
// @Param id path uint true "Business unit ID"
// @Param request body services.UpdateBusinessUnitRequest true "Business unit fields"
// @Success 200 {object} services.BusinessUnitResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Business unit not found"
// @Router /business-units/{id} [put]
func (h *BusinessUnitHandler) UpdateBusinessUnit(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateBusinessUnitRequest
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

	resp, err := h.buService.Update(c.Request.Context(), id, &req, userID.(string))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteBusinessUnit deletes an empty business unit
// @Summary Delete business unit
// @Description Deletes a business unit; rejected while teams remain
// @Tags business-units
// @Produce json
// @Param id path uint true "Business unit ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Business unit not found"
// @Failure 409 {object} ErrorResponse "Business unit not empty"
// @Router /business-units/{id} [delete]
func (h *BusinessUnitHandler) DeleteBusinessUnit(c *gin.Context) {
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

	if err := h.buService.Delete(c.Request.Context(), id, userID.(string)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Business unit deleted", "business_unit_id", id)
	c.Status(http.StatusNoContent)
}

func (h *BusinessUnitHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrBusinessUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Business unit not found",
		})
	case errors.Is(err, services.ErrBusinessUnitNameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Business unit name already in use",
		})
	case errors.Is(err, services.ErrBusinessUnitNotEmpty):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Business unit still has teams",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
