package analytics_repo

import (
	"github.com/Masterminds/squirrel"

	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// salesFrom joins fact_sales with dim_date so every sales query can be
// bounded by calendar date.
func salesFrom(columns ...string) squirrel.SelectBuilder {
	return builder().
		Select(columns...).
		From("fact_sales f").
		Join("dim_date d ON d.date_key = f.date_key")
}

// withRange bounds q inclusively on d.full_date.
func withRange(q squirrel.SelectBuilder, r analytics.DateRange) squirrel.SelectBuilder {
	if r.Start != nil {
		q = q.Where(squirrel.GtOrEq{"d.full_date": *r.Start})
	}
	if r.End != nil {
		q = q.Where(squirrel.LtOrEq{"d.full_date": *r.End})
	}
	return q
}

func withKey(q squirrel.SelectBuilder, column string, key *dimension.Key) squirrel.SelectBuilder {
	if key != nil {
		q = q.Where(squirrel.Eq{column: *key})
	}
	return q
}

// withInventory applies an inventory filter to a query over an alias "f"
// that carries warehouse_key and product_key.
func withInventory(q squirrel.SelectBuilder, f analytics.InventoryFilter) squirrel.SelectBuilder {
	q = withRange(q, f.Range)
	q = withKey(q, "f.warehouse_key", f.WarehouseKey)
	return withKey(q, "f.product_key", f.ProductKey)
}

// --- Sales ---

func dailySalesQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom("d.full_date", "SUM(f.sales_amount) AS total_sales"), r).
		GroupBy("d.full_date").
		OrderBy("d.full_date")
}

func paymentSummaryQuery() squirrel.SelectBuilder {
	return builder().
		Select("pm.payment_type", "SUM(f.sales_amount) AS total_sales").
		From("fact_sales f").
		Join("dim_payment_method pm ON pm.payment_method_key = f.payment_method_key").
		GroupBy("pm.payment_type").
		OrderBy("total_sales DESC", "pm.payment_type")
}

func paymentProfitQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom(
		"pm.payment_type",
		"SUM(f.sales_amount) AS total_sales",
		"SUM(f.gross_profit) AS total_profit",
	), r).
		Join("dim_payment_method pm ON pm.payment_method_key = f.payment_method_key").
		GroupBy("pm.payment_type").
		OrderBy("pm.payment_type")
}

func topProductsQuery(r analytics.DateRange, n int) squirrel.SelectBuilder {
	return withRange(salesFrom("p.product_key", "p.product_name", "SUM(f.sales_amount) AS total_sales"), r).
		Join("dim_product p ON p.product_key = f.product_key").
		GroupBy("p.product_key", "p.product_name").
		OrderBy("total_sales DESC", "p.product_key").
		Suffix("LIMIT ?", n)
}

func categorySalesQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom("p.category", "SUM(f.sales_amount) AS total_sales"), r).
		Join("dim_product p ON p.product_key = f.product_key").
		GroupBy("p.category").
		OrderBy("p.category")
}

func basketFrequencyQuery(n int) squirrel.SelectBuilder {
	return builder().
		Select("p.product_key", "p.product_name", "COUNT(DISTINCT f.transaction_id) AS basket_count").
		From("fact_sales f").
		Join("dim_product p ON p.product_key = f.product_key").
		GroupBy("p.product_key", "p.product_name").
		OrderBy("basket_count DESC", "p.product_key").
		Suffix("LIMIT ?", n)
}

func salesByRegionQuery() squirrel.SelectBuilder {
	return builder().
		Select("s.region", "SUM(f.sales_amount) AS total_sales").
		From("fact_sales f").
		Join("dim_store s ON s.store_key = f.store_key").
		GroupBy("s.region").
		OrderBy("total_sales DESC", "s.region")
}

func summaryTotalsQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom(
		"COALESCE(SUM(f.sales_amount), 0) AS total_sales",
		"COALESCE(SUM(f.quantity), 0) AS total_quantity",
		"COUNT(*) AS line_count",
		"COUNT(DISTINCT f.transaction_id) AS transactions",
		"COALESCE(SUM(f.discount_amount), 0) AS total_discount",
		"COALESCE(SUM(f.gross_profit), 0) AS total_profit",
	), r)
}

func productDailySalesQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom("d.full_date", "p.product_name", "SUM(f.sales_amount) AS total_sales"), r).
		Join("dim_product p ON p.product_key = f.product_key").
		GroupBy("d.full_date", "p.product_key", "p.product_name").
		OrderBy("d.full_date", "p.product_name", "p.product_key")
}

func productStoreSalesQuery(r analytics.DateRange, storeKey *dimension.Key) squirrel.SelectBuilder {
	q := withRange(salesFrom(
		"s.store_key",
		"s.store_name",
		"p.product_name",
		"SUM(f.quantity) AS total_quantity",
		"SUM(f.sales_amount) AS total_sales",
	), r).
		Join("dim_store s ON s.store_key = f.store_key").
		Join("dim_product p ON p.product_key = f.product_key")
	return withKey(q, "f.store_key", storeKey).
		GroupBy("s.store_key", "s.store_name", "p.product_key", "p.product_name").
		OrderBy("s.store_key", "total_sales DESC", "p.product_key")
}

func productPriceStatsQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(salesFrom(
		"p.product_name",
		"ROUND(AVG(f.unit_price), 2) AS avg_unit_price",
		"MIN(f.unit_price) AS min_unit_price",
		"MAX(f.unit_price) AS max_unit_price",
	), r).
		Join("dim_product p ON p.product_key = f.product_key").
		GroupBy("p.product_key", "p.product_name").
		OrderBy("avg_unit_price DESC", "p.product_key")
}

// --- Promotions ---

func promotionSummaryQuery() squirrel.SelectBuilder {
	return builder().
		Select(
			"pr.promotion_name",
			"pr.promotion_type",
			"COUNT(*) AS trx_count",
			"SUM(f.sales_amount) AS total_sales",
		).
		From("fact_sales f").
		Join("dim_promotion pr ON pr.promotion_key = f.promotion_key").
		GroupBy("pr.promotion_name", "pr.promotion_type").
		OrderBy("total_sales DESC", "pr.promotion_name")
}

func topPromotionsQuery(n int) squirrel.SelectBuilder {
	return builder().
		Select(
			"pr.promotion_name",
			"SUM(f.discount_amount) AS total_discount",
			"SUM(f.sales_amount) AS total_sales",
		).
		From("fact_sales f").
		Join("dim_promotion pr ON pr.promotion_key = f.promotion_key").
		GroupBy("pr.promotion_name").
		OrderBy("total_sales DESC", "pr.promotion_name").
		Suffix("LIMIT ?", n)
}

func promotionEligibilityQuery(r analytics.DateRange, storeKey *dimension.Key) squirrel.SelectBuilder {
	q := withRange(builder().
		Select(
			"pr.promotion_key",
			"pr.promotion_name",
			"COUNT(*) AS store_days",
			"COUNT(DISTINCT f.store_key) AS stores",
		).
		From("fact_promotion_eligibility f").
		Join("dim_date d ON d.date_key = f.date_key").
		Join("dim_promotion pr ON pr.promotion_key = f.promotion_key"), r)
	return withKey(q, "f.store_key", storeKey).
		GroupBy("pr.promotion_key", "pr.promotion_name").
		OrderBy("pr.promotion_key")
}

// --- Inventory ---

// inventoryLevelsQuery sums on-hand quantity per date. Snapshots are summed
// across warehouses and products only; every date stays its own row.
func inventoryLevelsQuery(f analytics.InventoryFilter) squirrel.SelectBuilder {
	return withInventory(builder().
		Select("d.full_date", "SUM(f.on_hand_qty) AS quantity").
		From("fact_inventory_snapshot f").
		Join("dim_date d ON d.date_key = f.date_key"), f).
		GroupBy("d.full_date").
		OrderBy("d.full_date")
}

func inventoryMovementQuery(f analytics.InventoryFilter) squirrel.SelectBuilder {
	return withInventory(builder().
		Select("d.full_date", "SUM(f.quantity) AS quantity").
		From("fact_inventory_movement f").
		Join("dim_date d ON d.date_key = f.date_key"), f).
		GroupBy("d.full_date").
		OrderBy("d.full_date")
}

func movementByWarehouseQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(builder().
		Select("w.warehouse_key", "w.warehouse_name", "SUM(f.quantity) AS quantity").
		From("fact_inventory_movement f").
		Join("dim_date d ON d.date_key = f.date_key").
		Join("dim_warehouse w ON w.warehouse_key = f.warehouse_key"), r).
		GroupBy("w.warehouse_key", "w.warehouse_name").
		OrderBy("w.warehouse_name", "w.warehouse_key")
}

func movementByDateWarehouseQuery(r analytics.DateRange) squirrel.SelectBuilder {
	return withRange(builder().
		Select("d.full_date", "w.warehouse_key", "w.warehouse_name", "SUM(f.quantity) AS quantity").
		From("fact_inventory_movement f").
		Join("dim_date d ON d.date_key = f.date_key").
		Join("dim_warehouse w ON w.warehouse_key = f.warehouse_key"), r).
		GroupBy("d.full_date", "w.warehouse_key", "w.warehouse_name").
		OrderBy("d.full_date", "w.warehouse_key")
}

func inventoryBalancesQuery(warehouseKey, productKey *dimension.Key) squirrel.SelectBuilder {
	q := builder().
		Select(
			"f.warehouse_key",
			"w.warehouse_name",
			"f.product_key",
			"p.product_name",
			"f.ending_balance",
			"f.last_updated",
		).
		From("fact_inventory_balance f").
		Join("dim_warehouse w ON w.warehouse_key = f.warehouse_key").
		Join("dim_product p ON p.product_key = f.product_key")
	q = withKey(q, "f.warehouse_key", warehouseKey)
	return withKey(q, "f.product_key", productKey).
		OrderBy("w.warehouse_name", "p.product_name", "f.warehouse_key", "f.product_key")
}

// inventoryDailyBalancesQuery sums ending balances per date; balances of
// different dates are never added together.
func inventoryDailyBalancesQuery(f analytics.InventoryFilter) squirrel.SelectBuilder {
	return withInventory(builder().
		Select("d.full_date", "SUM(f.ending_balance) AS quantity").
		From("fact_inventory_daily_balance f").
		Join("dim_date d ON d.date_key = f.date_key"), f).
		GroupBy("d.full_date").
		OrderBy("d.full_date")
}

// --- Browse ---

// browseQuery selects the first limit rows of a table from the closed set.
// The table name never comes from user input directly and the limit is bound.
func browseQuery(t analytics.Table, limit int) squirrel.SelectBuilder {
	return builder().
		Select("*").
		From(string(t)).
		OrderBy(t.OrderBy()).
		Suffix("LIMIT ?", limit)
}
