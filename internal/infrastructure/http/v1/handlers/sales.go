package handlers

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/http/v1/dto"
)

// SalesHandler handles HTTP requests for sales analytics.
type SalesHandler struct {
	*BaseHandler
	service AnalyticsService
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service AnalyticsService) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers sales routes.
func (h *SalesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/daily", h.Daily)
	rg.GET("/payment-summary", h.PaymentSummary)
	rg.GET("/payment-margin", h.PaymentMargin)
	rg.GET("/top-products", h.TopProducts)
	rg.GET("/categories", h.Categories)
	rg.GET("/basket", h.Basket)
	rg.GET("/by-region", h.ByRegion)
	rg.GET("/summary", h.Summary)
	rg.GET("/product-daily", h.ProductDaily)
	rg.GET("/product-store", h.ProductStore)
	rg.GET("/price-stats", h.PriceStats)
}

// Daily handles GET /sales/daily
func (h *SalesHandler) Daily(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.DailySales(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// PaymentSummary handles GET /sales/payment-summary
func (h *SalesHandler) PaymentSummary(c *gin.Context) {
	items, err := h.service.PaymentSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// PaymentMargin handles GET /sales/payment-margin
func (h *SalesHandler) PaymentMargin(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.PaymentMargin(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// TopProducts handles GET /sales/top-products
func (h *SalesHandler) TopProducts(c *gin.Context) {
	var q dto.TopNQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q.RangeQuery)
	if !ok {
		return
	}

	items, err := h.service.TopProducts(c.Request.Context(), r, q.N)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Categories handles GET /sales/categories
func (h *SalesHandler) Categories(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.CategorySales(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Basket handles GET /sales/basket
func (h *SalesHandler) Basket(c *gin.Context) {
	var q dto.TopNQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.service.BasketFrequency(c.Request.Context(), q.N)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// ByRegion handles GET /sales/by-region
func (h *SalesHandler) ByRegion(c *gin.Context) {
	items, err := h.service.SalesByRegion(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// Summary handles GET /sales/summary
func (h *SalesHandler) Summary(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// ProductDaily handles GET /sales/product-daily
func (h *SalesHandler) ProductDaily(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.ProductDailySales(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// ProductStore handles GET /sales/product-store
func (h *SalesHandler) ProductStore(c *gin.Context) {
	var q dto.StoreQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q.RangeQuery)
	if !ok {
		return
	}

	items, err := h.service.ProductStoreSales(c.Request.Context(), r, optionalKey(q.Store))
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}

// PriceStats handles GET /sales/price-stats
func (h *SalesHandler) PriceStats(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, ok := h.DateRange(c, q)
	if !ok {
		return
	}

	items, err := h.service.ProductPriceStats(c.Request.Context(), r)
	if err != nil {
		h.Error(c, err)
		return
	}
	List(c, items)
}
