package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/utils"
)

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the JSON body for operations that have no payload.
type SuccessResponse struct {
	Message string `json:"message"`
}

// BaseHandler carries the request-scoped logging and parameter parsing
// helpers shared by all handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest writes an info line through the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// LogError writes an error line through the request-scoped logger.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.FromContext(c, h.logger).Error(msg, append(args, "error", err)...)
}

// parseIDParam reads a numeric path parameter. On failure it writes a 400
// response and returns 0; callers must return when they get 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Invalid %s parameter", name),
		})
		return 0
	}
	return uint(id)
}

// parseIntQuery reads an integer query parameter, falling back to def when
// the parameter is absent or malformed.
func (h *BaseHandler) parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// parsePagination reads page/size query parameters into limit and offset.
// Pages start at 1; size defaults to 10 and is capped at 100.
func (h *BaseHandler) parsePagination(c *gin.Context) (limit, offset int) {
	page := h.parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := h.parseIntQuery(c, "size", 10)
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return size, (page - 1) * size
}
