// Package analytics provides the aggregation query engine over the star
// schema. Every operation is read-only and independent of the others.
package analytics

import (
	"strings"
	"time"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
)

// DateRange is an inclusive range on dim_date.full_date. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds; an empty string leaves that side
// open. An unparseable date or an end before the start is an invalid range.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if s := strings.TrimSpace(start); s != "" {
		t, err := dimension.ParseDate(s)
		if err != nil {
			return DateRange{}, apperror.NewInvalidRange("start is not a YYYY-MM-DD date").
				WithDetail("start", start).WithCause(err)
		}
		r.Start = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := dimension.ParseDate(s)
		if err != nil {
			return DateRange{}, apperror.NewInvalidRange("end is not a YYYY-MM-DD date").
				WithDetail("end", end).WithCause(err)
		}
		r.End = &t
	}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate rejects a range whose end precedes its start.
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return apperror.NewInvalidRange("end date is before start date").
			WithDetail("start", r.Start.Format(dimension.DateLayout)).
			WithDetail("end", r.End.Format(dimension.DateLayout))
	}
	return nil
}

// String renders the range for cache keys and logs.
func (r DateRange) String() string {
	bound := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.Format(dimension.DateLayout)
	}
	return bound(r.Start) + ".." + bound(r.End)
}

// InventoryFilter narrows inventory queries by range, warehouse and product.
type InventoryFilter struct {
	Range        DateRange
	WarehouseKey *dimension.Key
	ProductKey   *dimension.Key
}

func (f InventoryFilter) String() string {
	key := func(k *dimension.Key) string {
		if k == nil {
			return "*"
		}
		return formatKey(*k)
	}
	return f.Range.String() + "|w=" + key(f.WarehouseKey) + "|p=" + key(f.ProductKey)
}

// --- Sales ---

type DailySales struct {
	Date       time.Time   `db:"full_date" json:"date"`
	TotalSales types.Money `db:"total_sales" json:"totalSales"`
}

type PaymentTotal struct {
	PaymentType string      `db:"payment_type" json:"paymentType"`
	TotalSales  types.Money `db:"total_sales" json:"totalSales"`
}

// PaymentProfit holds the sums a payment margin is computed from.
type PaymentProfit struct {
	PaymentType string      `db:"payment_type"`
	TotalSales  types.Money `db:"total_sales"`
	TotalProfit types.Money `db:"total_profit"`
}

// PaymentMargin is Σgross_profit / Σsales_amount for one payment type.
type PaymentMargin struct {
	PaymentType string      `json:"paymentType"`
	Margin      types.Money `json:"margin"`
}

type ProductSales struct {
	ProductKey  dimension.Key `db:"product_key" json:"productKey"`
	ProductName string        `db:"product_name" json:"productName"`
	TotalSales  types.Money   `db:"total_sales" json:"totalSales"`
}

type CategorySales struct {
	Category   string      `db:"category" json:"category"`
	TotalSales types.Money `db:"total_sales" json:"totalSales"`
}

// BasketFrequency counts distinct transactions containing a product.
type BasketFrequency struct {
	ProductKey  dimension.Key `db:"product_key" json:"productKey"`
	ProductName string        `db:"product_name" json:"productName"`
	BasketCount int64         `db:"basket_count" json:"basketCount"`
}

type RegionSales struct {
	Region     string      `db:"region" json:"region"`
	TotalSales types.Money `db:"total_sales" json:"totalSales"`
}

// SummaryTotals are the raw sums behind the KPI card.
type SummaryTotals struct {
	TotalSales    types.Money `db:"total_sales"`
	TotalQuantity int64       `db:"total_quantity"`
	LineCount     int64       `db:"line_count"`
	Transactions  int64       `db:"transactions"`
	TotalDiscount types.Money `db:"total_discount"`
	TotalProfit   types.Money `db:"total_profit"`
}

// Summary is the KPI card of the dashboard.
type Summary struct {
	TotalSales    types.Money `json:"totalSales"`
	TotalQuantity int64       `json:"totalQuantity"`
	LineCount     int64       `json:"lineCount"`
	Transactions  int64       `json:"transactions"`
	TotalDiscount types.Money `json:"totalDiscount"`
	TotalProfit   types.Money `json:"totalProfit"`
	// MarginPercent is TotalProfit / TotalSales * 100, 0 without sales.
	MarginPercent types.Money `json:"marginPercent"`
}

type ProductDailySales struct {
	Date        time.Time   `db:"full_date" json:"date"`
	ProductName string      `db:"product_name" json:"productName"`
	TotalSales  types.Money `db:"total_sales" json:"totalSales"`
}

type ProductStoreSales struct {
	StoreKey      dimension.Key `db:"store_key" json:"storeKey"`
	StoreName     string        `db:"store_name" json:"storeName"`
	ProductName   string        `db:"product_name" json:"productName"`
	TotalQuantity int64         `db:"total_quantity" json:"totalQuantity"`
	TotalSales    types.Money   `db:"total_sales" json:"totalSales"`
}

type ProductPriceStats struct {
	ProductName  string      `db:"product_name" json:"productName"`
	AvgUnitPrice types.Money `db:"avg_unit_price" json:"avgUnitPrice"`
	MinUnitPrice types.Money `db:"min_unit_price" json:"minUnitPrice"`
	MaxUnitPrice types.Money `db:"max_unit_price" json:"maxUnitPrice"`
}

// --- Promotions ---

type PromotionSummary struct {
	PromotionName string      `db:"promotion_name" json:"promotionName"`
	PromotionType string      `db:"promotion_type" json:"promotionType"`
	TrxCount      int64       `db:"trx_count" json:"trxCount"`
	TotalSales    types.Money `db:"total_sales" json:"totalSales"`
}

type PromotionPerformance struct {
	PromotionName string      `db:"promotion_name" json:"promotionName"`
	TotalDiscount types.Money `db:"total_discount" json:"totalDiscount"`
	TotalSales    types.Money `db:"total_sales" json:"totalSales"`
}

// PromotionEligibility counts the store-days a promotion was offered.
type PromotionEligibility struct {
	PromotionKey  dimension.Key `db:"promotion_key" json:"promotionKey"`
	PromotionName string        `db:"promotion_name" json:"promotionName"`
	StoreDays     int64         `db:"store_days" json:"storeDays"`
	Stores        int64         `db:"stores" json:"stores"`
}

// --- Inventory ---

// InventoryLevel is a per-date quantity. It backs both on-hand snapshot
// levels and daily ending balances, which are summed across warehouse and
// product but never across dates.
type InventoryLevel struct {
	Date     time.Time `db:"full_date" json:"date"`
	Quantity int64     `db:"quantity" json:"quantity"`
}

type MovementPoint struct {
	Date     time.Time `db:"full_date" json:"date"`
	Quantity int64     `db:"quantity" json:"totalQty"`
}

type WarehouseMovement struct {
	WarehouseKey  dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	WarehouseName string        `db:"warehouse_name" json:"warehouseName"`
	Quantity      int64         `db:"quantity" json:"totalQty"`
}

// DatedWarehouseMovement is one cell of the sparse movement matrix.
type DatedWarehouseMovement struct {
	Date          time.Time     `db:"full_date"`
	WarehouseKey  dimension.Key `db:"warehouse_key"`
	WarehouseName string        `db:"warehouse_name"`
	Quantity      int64         `db:"quantity"`
}

// StackedMovement is the dense date x warehouse movement matrix. Every series
// is aligned positionally with Dates.
type StackedMovement struct {
	Dates  []time.Time     `json:"dates"`
	Series []StackedSeries `json:"series"`
}

type StackedSeries struct {
	WarehouseKey  dimension.Key `json:"warehouseKey"`
	WarehouseName string        `json:"warehouseName"`
	Quantities    []int64       `json:"quantities"`
}

type InventoryBalance struct {
	WarehouseKey  dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	WarehouseName string        `db:"warehouse_name" json:"warehouseName"`
	ProductKey    dimension.Key `db:"product_key" json:"productKey"`
	ProductName   string        `db:"product_name" json:"productName"`
	EndingBalance int64         `db:"ending_balance" json:"endingBalance"`
	LastUpdated   time.Time     `db:"last_updated" json:"lastUpdated"`
}

// --- Browse ---

// TableBrowse is the first rows of a table with their column names.
// Error is set only in batch browses, for the entry that failed.
type TableBrowse struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Error   string   `json:"error,omitempty"`
}

func emptyBrowse(table string) *TableBrowse {
	return &TableBrowse{Table: table, Columns: []string{}, Rows: [][]any{}}
}

// --- Dashboard ---

// Dashboard bundles the sections of the overview page. A failed section is
// left empty and its error is reported under Errors by section name.
type Dashboard struct {
	Range            string             `json:"range"`
	Summary          *Summary           `json:"summary,omitempty"`
	DailySales       []DailySales       `json:"dailySales"`
	TopProducts      []ProductSales     `json:"topProducts"`
	CategorySales    []CategorySales    `json:"categorySales"`
	PaymentMargin    []PaymentMargin    `json:"paymentMargin"`
	BasketFrequency  []BasketFrequency  `json:"basketFrequency"`
	SalesByRegion    []RegionSales      `json:"salesByRegion"`
	PromotionSummary []PromotionSummary `json:"promotionSummary"`
	Errors           map[string]string  `json:"errors,omitempty"`
}
