package analytics

import (
	"strconv"
	"strings"

	"retaildw/internal/domain/dimension"
)

// Table is a browsable warehouse table. Only names in Tables ever reach SQL.
type Table string

const (
	TableDimDate                  Table = "dim_date"
	TableDimStore                 Table = "dim_store"
	TableDimProduct               Table = "dim_product"
	TableDimCustomer              Table = "dim_customer"
	TableDimPaymentMethod         Table = "dim_payment_method"
	TableDimPromotion             Table = "dim_promotion"
	TableDimWarehouse             Table = "dim_warehouse"
	TableFactSales                Table = "fact_sales"
	TableFactPromotionEligibility Table = "fact_promotion_eligibility"
	TableFactInventoryMovement    Table = "fact_inventory_movement"
	TableFactInventorySnapshot    Table = "fact_inventory_snapshot"
	TableFactInventoryBalance     Table = "fact_inventory_balance"
	TableFactInventoryDaily       Table = "fact_inventory_daily_balance"
)

// Tables lists every browsable table, dimensions first.
var Tables = []Table{
	TableDimDate,
	TableDimStore,
	TableDimProduct,
	TableDimCustomer,
	TableDimPaymentMethod,
	TableDimPromotion,
	TableDimWarehouse,
	TableFactSales,
	TableFactPromotionEligibility,
	TableFactInventoryMovement,
	TableFactInventorySnapshot,
	TableFactInventoryBalance,
	TableFactInventoryDaily,
}

// tableOrder is the primary key column list used to make browse output stable.
var tableOrder = map[Table]string{
	TableDimDate:                  "date_key",
	TableDimStore:                 "store_key",
	TableDimProduct:               "product_key",
	TableDimCustomer:              "customer_key",
	TableDimPaymentMethod:         "payment_method_key",
	TableDimPromotion:             "promotion_key",
	TableDimWarehouse:             "warehouse_key",
	TableFactSales:                "sales_key",
	TableFactPromotionEligibility: "promotion_key, date_key, store_key",
	TableFactInventoryMovement:    "movement_key",
	TableFactInventorySnapshot:    "warehouse_key, product_key, date_key",
	TableFactInventoryBalance:     "warehouse_key, product_key",
	TableFactInventoryDaily:       "warehouse_key, product_key, date_key",
}

// ParseTable resolves a user-supplied name. Matching is case-insensitive.
func ParseTable(name string) (Table, bool) {
	t := Table(strings.ToLower(strings.TrimSpace(name)))
	_, ok := tableOrder[t]
	return t, ok
}

// OrderBy returns the ORDER BY column list for t.
func (t Table) OrderBy() string {
	return tableOrder[t]
}

// clampLimit applies the default for a missing limit and bounds it to [1, maxLimit].
func clampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func formatKey(k dimension.Key) string {
	return strconv.FormatInt(int64(k), 10)
}
