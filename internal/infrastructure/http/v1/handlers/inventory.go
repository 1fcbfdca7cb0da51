package handlers

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/domain/analytics"
	"retaildw/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles HTTP requests for inventory analytics.
type InventoryHandler struct {
	*BaseHandler
	service AnalyticsService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service AnalyticsService) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers inventory routes.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/levels", h.Levels)
	rg.GET("/movement", h.Movement)
	rg.GET("/movement/by-warehouse", h.MovementByWarehouse)
	rg.GET("/movement/stacked", h.MovementStacked)
	rg.GET("/balances", h.Balances)
	rg.GET("/daily-balances", h.DailyBalances)
}

func (h *InventoryHandler) filter(c *gin.Context) (analytics.InventoryFilter, bool) {
	var q dto.InventoryQuery
	if !h.BindQuery(c, &q) {
		return analytics.InventoryFilter{}, false
	}
	r, ok := h.DateRange(c, q.RangeQuery)
	if !ok {
		return analytics.InventoryFilter{}, false
	}
	return analytics.InventoryFilter{
		Range:        r,
		WarehouseKey: optionalKey(q.Warehouse),
		ProductKey:   optionalKey(q.Product),
	}, true
}

// Levels handles GET /inventory/levels
func (h *InventoryHandler) Levels(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	items, err := h.service.InventoryLevels(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Movement handles GET /inventory/movement
func (h *InventoryHandler) Movement(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	items, err := h.service.InventoryMovement(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// MovementByWarehouse handles GET /inventory/movement/by-warehouse
func (h *InventoryHandler) MovementByWarehouse(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.InventoryMovementByWarehouse(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// MovementStacked handles GET /inventory/movement/stacked
func (h *InventoryHandler) MovementStacked(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	stacked, err := h.service.InventoryMovementStacked(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stacked)
}

// Balances handles GET /inventory/balances
func (h *InventoryHandler) Balances(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	items, err := h.service.InventoryBalances(c.Request.Context(), f.WarehouseKey, f.ProductKey)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// DailyBalances handles GET /inventory/daily-balances
func (h *InventoryHandler) DailyBalances(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	items, err := h.service.InventoryDailyBalances(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}
