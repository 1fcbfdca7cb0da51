// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"

	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/loader"
)

// AnalyticsService is the query engine surface the handlers serve.
// *analytics.Service implements it.
type AnalyticsService interface {
	DailySales(ctx context.Context, r analytics.DateRange) ([]analytics.DailySales, error)
	PaymentSummary(ctx context.Context) ([]analytics.PaymentTotal, error)
	PaymentMargin(ctx context.Context, r analytics.DateRange) ([]analytics.PaymentMargin, error)
	TopProducts(ctx context.Context, r analytics.DateRange, n int) ([]analytics.ProductSales, error)
	CategorySales(ctx context.Context, r analytics.DateRange) ([]analytics.CategorySales, error)
	BasketFrequency(ctx context.Context, n int) ([]analytics.BasketFrequency, error)
	SalesByRegion(ctx context.Context) ([]analytics.RegionSales, error)
	Summary(ctx context.Context, r analytics.DateRange) (*analytics.Summary, error)
	ProductDailySales(ctx context.Context, r analytics.DateRange) ([]analytics.ProductDailySales, error)
	ProductStoreSales(ctx context.Context, r analytics.DateRange, storeKey *dimension.Key) ([]analytics.ProductStoreSales, error)
	ProductPriceStats(ctx context.Context, r analytics.DateRange) ([]analytics.ProductPriceStats, error)

	PromotionSummary(ctx context.Context) ([]analytics.PromotionSummary, error)
	TopPromotions(ctx context.Context, n int) ([]analytics.PromotionPerformance, error)
	PromotionEligibility(ctx context.Context, r analytics.DateRange, storeKey *dimension.Key) ([]analytics.PromotionEligibility, error)

	InventoryLevels(ctx context.Context, f analytics.InventoryFilter) ([]analytics.InventoryLevel, error)
	InventoryMovement(ctx context.Context, f analytics.InventoryFilter) ([]analytics.MovementPoint, error)
	InventoryMovementByWarehouse(ctx context.Context, r analytics.DateRange) ([]analytics.WarehouseMovement, error)
	InventoryMovementStacked(ctx context.Context, r analytics.DateRange) (*analytics.StackedMovement, error)
	InventoryBalances(ctx context.Context, warehouseKey, productKey *dimension.Key) ([]analytics.InventoryBalance, error)
	InventoryDailyBalances(ctx context.Context, f analytics.InventoryFilter) ([]analytics.InventoryLevel, error)

	BrowseTable(ctx context.Context, name string, limit int) (*analytics.TableBrowse, error)
	BrowseTables(ctx context.Context, names []string, limit int) []*analytics.TableBrowse
	Dashboard(ctx context.Context, r analytics.DateRange) (*analytics.Dashboard, error)
}

// LoadHistory reports bulk load runs.
type LoadHistory interface {
	LastRun(ctx context.Context) (*loader.Run, error)
}

var (
	_ AnalyticsService = (*analytics.Service)(nil)
	_ LoadHistory      = (*loader.Loader)(nil)
)
