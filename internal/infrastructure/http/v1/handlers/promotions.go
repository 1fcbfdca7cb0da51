package handlers

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/http/v1/dto"
)

// PromotionsHandler handles HTTP requests for promotion analytics.
type PromotionsHandler struct {
	*BaseHandler
	service AnalyticsService
}

// NewPromotionsHandler creates a new promotions handler.
func NewPromotionsHandler(base *BaseHandler, service AnalyticsService) *PromotionsHandler {
	return &PromotionsHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers promotion routes.
func (h *PromotionsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.Summary)
	rg.GET("/top", h.Top)
	rg.GET("/eligibility", h.Eligibility)
}

// Summary handles GET /promotions/summary
func (h *PromotionsHandler) Summary(c *gin.Context) {
	items, err := h.service.PromotionSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Top handles GET /promotions/top
func (h *PromotionsHandler) Top(c *gin.Context) {
	var q dto.TopNQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.service.TopPromotions(c.Request.Context(), q.N)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Eligibility handles GET /promotions/eligibility
func (h *PromotionsHandler) Eligibility(c *gin.Context) {
	var q dto.StoreQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q.RangeQuery)
	if !ok {
		return
	}

	items, err := h.service.PromotionEligibility(c.Request.Context(), r, optionalKey(q.Store))
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}
