package handlers

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/http/v1/dto"
)

// DashboardHandler serves the combined overview and load history.
type DashboardHandler struct {
	*BaseHandler
	service AnalyticsService
	loads   LoadHistory
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(base *BaseHandler, service AnalyticsService, loads LoadHistory) *DashboardHandler {
	return &DashboardHandler{BaseHandler: base, service: service, loads: loads}
}

// Dashboard handles GET /dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}

// LastLoad handles GET /loads/last
func (h *DashboardHandler) LastLoad(c *gin.Context) {
	run, err := h.loads.LastRun(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, run)
}
