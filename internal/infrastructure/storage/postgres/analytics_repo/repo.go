// Package analytics_repo provides the PostgreSQL implementation of the
// aggregation query engine.
package analytics_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/infrastructure/storage/postgres"
)

// Compile-time check that Repo implements analytics.Repository.
var _ analytics.Repository = (*Repo)(nil)

// Repo runs analytical queries through the querier of the current
// transaction, which the service opens read-only.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new analytics repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// selectAll runs q and scans every row into a non-nil slice.
func selectAll[T any](ctx context.Context, r *Repo, q squirrel.SelectBuilder, op string) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}

	items := make([]T, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.MapError(err))
	}
	return items, nil
}

func (r *Repo) DailySales(ctx context.Context, dr analytics.DateRange) ([]analytics.DailySales, error) {
	return selectAll[analytics.DailySales](ctx, r, dailySalesQuery(dr), "daily sales")
}

func (r *Repo) PaymentSummary(ctx context.Context) ([]analytics.PaymentTotal, error) {
	return selectAll[analytics.PaymentTotal](ctx, r, paymentSummaryQuery(), "payment summary")
}

func (r *Repo) PaymentProfit(ctx context.Context, dr analytics.DateRange) ([]analytics.PaymentProfit, error) {
	return selectAll[analytics.PaymentProfit](ctx, r, paymentProfitQuery(dr), "payment profit")
}

func (r *Repo) TopProducts(ctx context.Context, dr analytics.DateRange, n int) ([]analytics.ProductSales, error) {
	return selectAll[analytics.ProductSales](ctx, r, topProductsQuery(dr, n), "top products")
}

func (r *Repo) CategorySales(ctx context.Context, dr analytics.DateRange) ([]analytics.CategorySales, error) {
	return selectAll[analytics.CategorySales](ctx, r, categorySalesQuery(dr), "category sales")
}

func (r *Repo) BasketFrequency(ctx context.Context, n int) ([]analytics.BasketFrequency, error) {
	return selectAll[analytics.BasketFrequency](ctx, r, basketFrequencyQuery(n), "basket frequency")
}

func (r *Repo) SalesByRegion(ctx context.Context) ([]analytics.RegionSales, error) {
	return selectAll[analytics.RegionSales](ctx, r, salesByRegionQuery(), "sales by region")
}

// SummaryTotals returns zero totals when no sales match the range.
func (r *Repo) SummaryTotals(ctx context.Context, dr analytics.DateRange) (*analytics.SummaryTotals, error) {
	sql, args, err := summaryTotalsQuery(dr).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}

	totals := new(analytics.SummaryTotals)
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), totals, sql, args...); err != nil {
		return nil, fmt.Errorf("summary: %w", postgres.MapError(err))
	}
	return totals, nil
}

func (r *Repo) ProductDailySales(ctx context.Context, dr analytics.DateRange) ([]analytics.ProductDailySales, error) {
	return selectAll[analytics.ProductDailySales](ctx, r, productDailySalesQuery(dr), "product daily sales")
}

func (r *Repo) ProductStoreSales(ctx context.Context, dr analytics.DateRange, storeKey *dimension.Key) ([]analytics.ProductStoreSales, error) {
	return selectAll[analytics.ProductStoreSales](ctx, r, productStoreSalesQuery(dr, storeKey), "product store sales")
}

func (r *Repo) ProductPriceStats(ctx context.Context, dr analytics.DateRange) ([]analytics.ProductPriceStats, error) {
	return selectAll[analytics.ProductPriceStats](ctx, r, productPriceStatsQuery(dr), "product price stats")
}

func (r *Repo) PromotionSummary(ctx context.Context) ([]analytics.PromotionSummary, error) {
	return selectAll[analytics.PromotionSummary](ctx, r, promotionSummaryQuery(), "promotion summary")
}

func (r *Repo) TopPromotions(ctx context.Context, n int) ([]analytics.PromotionPerformance, error) {
	return selectAll[analytics.PromotionPerformance](ctx, r, topPromotionsQuery(n), "top promotions")
}

func (r *Repo) PromotionEligibility(ctx context.Context, dr analytics.DateRange, storeKey *dimension.Key) ([]analytics.PromotionEligibility, error) {
	return selectAll[analytics.PromotionEligibility](ctx, r, promotionEligibilityQuery(dr, storeKey), "promotion eligibility")
}

func (r *Repo) InventoryLevels(ctx context.Context, f analytics.InventoryFilter) ([]analytics.InventoryLevel, error) {
	return selectAll[analytics.InventoryLevel](ctx, r, inventoryLevelsQuery(f), "inventory levels")
}

func (r *Repo) InventoryMovement(ctx context.Context, f analytics.InventoryFilter) ([]analytics.MovementPoint, error) {
	return selectAll[analytics.MovementPoint](ctx, r, inventoryMovementQuery(f), "inventory movement")
}

func (r *Repo) MovementByWarehouse(ctx context.Context, dr analytics.DateRange) ([]analytics.WarehouseMovement, error) {
	return selectAll[analytics.WarehouseMovement](ctx, r, movementByWarehouseQuery(dr), "movement by warehouse")
}

func (r *Repo) MovementByDateWarehouse(ctx context.Context, dr analytics.DateRange) ([]analytics.DatedWarehouseMovement, error) {
	return selectAll[analytics.DatedWarehouseMovement](ctx, r, movementByDateWarehouseQuery(dr), "movement by date and warehouse")
}

func (r *Repo) InventoryBalances(ctx context.Context, warehouseKey, productKey *dimension.Key) ([]analytics.InventoryBalance, error) {
	return selectAll[analytics.InventoryBalance](ctx, r, inventoryBalancesQuery(warehouseKey, productKey), "inventory balances")
}

func (r *Repo) InventoryDailyBalances(ctx context.Context, f analytics.InventoryFilter) ([]analytics.InventoryLevel, error) {
	return selectAll[analytics.InventoryLevel](ctx, r, inventoryDailyBalancesQuery(f), "inventory daily balances")
}

// Browse returns the first limit rows of t with column names taken from the
// result description, so every table is browsed the same way.
func (r *Repo) Browse(ctx context.Context, t analytics.Table, limit int) (*analytics.TableBrowse, error) {
	sql, args, err := browseQuery(t, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build browse: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("browse %s: %w", t, postgres.MapError(err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &analytics.TableBrowse{
		Table:   string(t),
		Columns: make([]string, len(fields)),
		Rows:    make([][]any, 0, limit),
	}
	for i, fd := range fields {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("browse %s: read row: %w", t, err)
		}
		for i, v := range values {
			values[i] = browseValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("browse %s: %w", t, postgres.MapError(err))
	}
	return result, nil
}

// browseValue converts driver values into JSON-friendly ones: NUMERIC as a
// fixed-point string, DATE as YYYY-MM-DD.
func browseValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid || x.Int == nil {
			return nil
		}
		d := decimal.NewFromBigInt(x.Int, x.Exp)
		if x.Exp < 0 {
			return d.StringFixed(-x.Exp)
		}
		return d.String()
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(dimension.DateLayout)
		}
		return x
	default:
		return v
	}
}
