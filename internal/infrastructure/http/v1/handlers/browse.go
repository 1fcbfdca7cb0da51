package handlers

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/http/v1/dto"
)

// BrowseHandler serves raw table previews.
type BrowseHandler struct {
	*BaseHandler
	service AnalyticsService
}

// NewBrowseHandler creates a new browse handler.
func NewBrowseHandler(base *BaseHandler, service AnalyticsService) *BrowseHandler {
	return &BrowseHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers browse routes.
func (h *BrowseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Tables)
	rg.GET("/:table", h.Table)
}

// Table handles GET /browse/:table
func (h *BrowseHandler) Table(c *gin.Context) {
	var q dto.BrowseQuery
	if !h.BindQuery(c, &q) {
		return
	}

	res, err := h.service.BrowseTable(c.Request.Context(), c.Param("table"), q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Tables handles GET /browse?tables=a,b
func (h *BrowseHandler) Tables(c *gin.Context) {
	var q dto.BrowseQuery
	if !h.BindQuery(c, &q) {
		return
	}

	List(c, h.service.BrowseTables(c.Request.Context(), splitList(q.Tables), q.Limit))
}
