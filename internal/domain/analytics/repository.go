package analytics

import (
	"context"

	"retaildw/internal/domain/dimension"
)

// Repository defines analytical data access. Implementations return rows
// already grouped and ordered as each method documents.
type Repository interface {
	// Sales
	DailySales(ctx context.Context, r DateRange) ([]DailySales, error)
	PaymentSummary(ctx context.Context) ([]PaymentTotal, error)
	// PaymentProfit is ordered by payment type ascending.
	PaymentProfit(ctx context.Context, r DateRange) ([]PaymentProfit, error)
	TopProducts(ctx context.Context, r DateRange, n int) ([]ProductSales, error)
	CategorySales(ctx context.Context, r DateRange) ([]CategorySales, error)
	BasketFrequency(ctx context.Context, n int) ([]BasketFrequency, error)
	SalesByRegion(ctx context.Context) ([]RegionSales, error)
	SummaryTotals(ctx context.Context, r DateRange) (*SummaryTotals, error)
	ProductDailySales(ctx context.Context, r DateRange) ([]ProductDailySales, error)
	ProductStoreSales(ctx context.Context, r DateRange, storeKey *dimension.Key) ([]ProductStoreSales, error)
	ProductPriceStats(ctx context.Context, r DateRange) ([]ProductPriceStats, error)

	// Promotions
	PromotionSummary(ctx context.Context) ([]PromotionSummary, error)
	TopPromotions(ctx context.Context, n int) ([]PromotionPerformance, error)
	PromotionEligibility(ctx context.Context, r DateRange, storeKey *dimension.Key) ([]PromotionEligibility, error)

	// Inventory
	InventoryLevels(ctx context.Context, f InventoryFilter) ([]InventoryLevel, error)
	InventoryMovement(ctx context.Context, f InventoryFilter) ([]MovementPoint, error)
	MovementByWarehouse(ctx context.Context, r DateRange) ([]WarehouseMovement, error)
	MovementByDateWarehouse(ctx context.Context, r DateRange) ([]DatedWarehouseMovement, error)
	InventoryBalances(ctx context.Context, warehouseKey, productKey *dimension.Key) ([]InventoryBalance, error)
	InventoryDailyBalances(ctx context.Context, f InventoryFilter) ([]InventoryLevel, error)

	// Browse returns the first limit rows of a table in primary key order.
	Browse(ctx context.Context, table Table, limit int) (*TableBrowse, error)
}

// Generation identifies the cache contents between two loads.
type Generation int64

// ResultCache stores query results between loads. A miss is (gen, false, nil).
// Set must be given the generation the preceding Get returned, so a result
// computed before a load is never stored as current after it.
type ResultCache interface {
	Get(ctx context.Context, key string, dst any) (Generation, bool, error)
	Set(ctx context.Context, gen Generation, key string, value any) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (Generation, bool, error) { return 0, false, nil }
func (NopCache) Set(context.Context, Generation, string, any) error         { return nil }
