package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"retaildw/internal/core/apperror"
	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// DateRange parses the start/end query parameters.
func (h *BaseHandler) DateRange(c *gin.Context, q dto.RangeQuery) (analytics.DateRange, bool) {
	r, err := analytics.ParseDateRange(q.Start, q.End)
	if err != nil {
		h.Error(c, err)
		return analytics.DateRange{}, false
	}
	return r, true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// List sends 200 response with a wrapped result list.
func List[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, dto.NewListResponse(items))
}

func optionalKey(v *int64) *dimension.Key {
	if v == nil {
		return nil
	}
	k := dimension.Key(*v)
	return &k
}

// splitList splits a comma separated parameter, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
