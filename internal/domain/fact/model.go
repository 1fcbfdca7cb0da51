// Package fact provides the fact store: the four fact-table kinds of the
// warehouse, each keyed by its grain and referencing the dimension catalog by
// surrogate key. Facts are append-only; corrections are new offsetting rows.
package fact

import (
	"time"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
)

// Kind identifies a fact table.
type Kind string

const (
	// KindSales is transactional: one sold line item per transaction.
	KindSales Kind = "sales"
	// KindPromotionEligibility is factless: promotion x date x store.
	KindPromotionEligibility Kind = "promotion_eligibility"
	// KindInventoryMovement records discrete inventory events; additive over time.
	KindInventoryMovement Kind = "inventory_movement"
	// KindInventorySnapshot is periodic: warehouse x product x date levels.
	KindInventorySnapshot Kind = "inventory_snapshot"
	// KindInventoryBalance holds the latest balance per warehouse x product.
	KindInventoryBalance Kind = "inventory_balance"
	// KindInventoryDailyBalance holds the ending balance per warehouse x product x date.
	KindInventoryDailyBalance Kind = "inventory_daily_balance"
)

// Kinds lists every fact kind.
var Kinds = []Kind{
	KindSales,
	KindPromotionEligibility,
	KindInventoryMovement,
	KindInventorySnapshot,
	KindInventoryBalance,
	KindInventoryDailyBalance,
}

// Valid reports whether k is a known fact kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Table returns the fact's table name.
func (k Kind) Table() string {
	return "fact_" + string(k)
}

// Row is a fact row of any kind.
type Row interface {
	FactKind() Kind
	// References lists the dimension keys the row points at.
	References() []dimension.Ref
	// Validate checks row-level invariants that do not need the catalog.
	Validate() error
}

// SalesFact is one sold line item. Every field but MarginPercent is additive.
type SalesFact struct {
	DateKey          dimension.Key  `db:"date_key" json:"dateKey"`
	ProductKey       dimension.Key  `db:"product_key" json:"productKey"`
	StoreKey         dimension.Key  `db:"store_key" json:"storeKey"`
	CustomerKey      dimension.Key  `db:"customer_key" json:"customerKey"`
	PaymentMethodKey dimension.Key  `db:"payment_method_key" json:"paymentMethodKey"`
	PromotionKey     *dimension.Key `db:"promotion_key" json:"promotionKey,omitempty"`
	TransactionID    string         `db:"transaction_id" json:"transactionId"`
	Quantity         int64          `db:"quantity" json:"quantity"`
	UnitPrice        types.Money    `db:"unit_price" json:"unitPrice"`
	SalesAmount      types.Money    `db:"sales_amount" json:"salesAmount"`
	DiscountAmount   types.Money    `db:"discount_amount" json:"discountAmount"`
	GrossProfit      types.Money    `db:"gross_profit" json:"grossProfit"`
	MarginPercent    types.Money    `db:"margin_percent" json:"marginPercent"`
}

func (SalesFact) FactKind() Kind { return KindSales }

func (s SalesFact) References() []dimension.Ref {
	refs := []dimension.Ref{
		{Kind: dimension.KindDate, Key: s.DateKey},
		{Kind: dimension.KindProduct, Key: s.ProductKey},
		{Kind: dimension.KindStore, Key: s.StoreKey},
		{Kind: dimension.KindCustomer, Key: s.CustomerKey},
		{Kind: dimension.KindPaymentMethod, Key: s.PaymentMethodKey},
	}
	if s.PromotionKey != nil {
		refs = append(refs, dimension.Ref{Kind: dimension.KindPromotion, Key: *s.PromotionKey})
	}
	return refs
}

func (s SalesFact) Validate() error {
	if s.TransactionID == "" {
		return invalid(KindSales, "transaction_id is required")
	}
	if s.Quantity <= 0 {
		return invalid(KindSales, "quantity must be positive").WithDetail("transaction_id", s.TransactionID)
	}
	if s.UnitPrice.IsNegative() || s.DiscountAmount.IsNegative() {
		return invalid(KindSales, "amounts must not be negative").WithDetail("transaction_id", s.TransactionID)
	}
	expected := types.RoundMoney(types.NewMoneyFromInt(s.Quantity).Mul(s.UnitPrice))
	if !s.SalesAmount.Equal(expected) {
		return invalid(KindSales, "sales_amount must equal quantity * unit_price").
			WithDetail("transaction_id", s.TransactionID).
			WithDetail("sales_amount", s.SalesAmount.String()).
			WithDetail("expected", expected.String())
	}
	if s.GrossProfit.IsNegative() || s.GrossProfit.GreaterThan(s.SalesAmount) {
		return invalid(KindSales, "gross_profit must be within [0, sales_amount]").
			WithDetail("transaction_id", s.TransactionID)
	}
	if s.MarginPercent.IsNegative() || s.MarginPercent.GreaterThan(types.NewMoneyFromInt(100)) {
		return invalid(KindSales, "margin_percent must be within [0, 100]").
			WithDetail("transaction_id", s.TransactionID)
	}
	return nil
}

// PromotionEligibility records that a promotion ran in a store on a day.
// Presence of the row is the fact; it carries no measure.
type PromotionEligibility struct {
	PromotionKey dimension.Key `db:"promotion_key" json:"promotionKey"`
	DateKey      dimension.Key `db:"date_key" json:"dateKey"`
	StoreKey     dimension.Key `db:"store_key" json:"storeKey"`
}

func (PromotionEligibility) FactKind() Kind { return KindPromotionEligibility }

func (p PromotionEligibility) References() []dimension.Ref {
	return []dimension.Ref{
		{Kind: dimension.KindPromotion, Key: p.PromotionKey},
		{Kind: dimension.KindDate, Key: p.DateKey},
		{Kind: dimension.KindStore, Key: p.StoreKey},
	}
}

func (PromotionEligibility) Validate() error { return nil }

// MovementType classifies an inventory event.
type MovementType string

const (
	MovementIn          MovementType = "IN"
	MovementOut         MovementType = "OUT"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementAdjustment  MovementType = "ADJUSTMENT"
)

// MovementTypes lists every movement type.
var MovementTypes = []MovementType{
	MovementIn, MovementOut, MovementTransferIn, MovementTransferOut, MovementAdjustment,
}

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	for _, known := range MovementTypes {
		if t == known {
			return true
		}
	}
	return false
}

// InventoryMovement is one inventory event.
type InventoryMovement struct {
	MovementType MovementType  `db:"movement_type" json:"movementType"`
	DateKey      dimension.Key `db:"date_key" json:"dateKey"`
	WarehouseKey dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	ProductKey   dimension.Key `db:"product_key" json:"productKey"`
	Quantity     int64         `db:"quantity" json:"quantity"`
	Remarks      string        `db:"remarks" json:"remarks"`
}

func (InventoryMovement) FactKind() Kind { return KindInventoryMovement }

func (m InventoryMovement) References() []dimension.Ref {
	return []dimension.Ref{
		{Kind: dimension.KindDate, Key: m.DateKey},
		{Kind: dimension.KindWarehouse, Key: m.WarehouseKey},
		{Kind: dimension.KindProduct, Key: m.ProductKey},
	}
}

// Validate allows signed quantities only for adjustments.
func (m InventoryMovement) Validate() error {
	if !m.MovementType.Valid() {
		return invalid(KindInventoryMovement, "unknown movement_type").WithDetail("value", string(m.MovementType))
	}
	if m.Quantity == 0 {
		return invalid(KindInventoryMovement, "quantity must not be zero")
	}
	if m.Quantity < 0 && m.MovementType != MovementAdjustment {
		return invalid(KindInventoryMovement, "only ADJUSTMENT may carry a negative quantity").
			WithDetail("movement_type", string(m.MovementType))
	}
	return nil
}

// InventorySnapshot is the stock level of a product in a warehouse on a day.
// Semi-additive: sums across warehouse or product, never across dates.
type InventorySnapshot struct {
	WarehouseKey dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	ProductKey   dimension.Key `db:"product_key" json:"productKey"`
	DateKey      dimension.Key `db:"date_key" json:"dateKey"`
	OnHandQty    int64         `db:"on_hand_qty" json:"onHandQty"`
	ReservedQty  int64         `db:"reserved_qty" json:"reservedQty"`
	InboundQty   int64         `db:"inbound_qty" json:"inboundQty"`
}

func (InventorySnapshot) FactKind() Kind { return KindInventorySnapshot }

func (s InventorySnapshot) References() []dimension.Ref {
	return []dimension.Ref{
		{Kind: dimension.KindWarehouse, Key: s.WarehouseKey},
		{Kind: dimension.KindProduct, Key: s.ProductKey},
		{Kind: dimension.KindDate, Key: s.DateKey},
	}
}

func (s InventorySnapshot) Validate() error {
	if s.OnHandQty < 0 || s.ReservedQty < 0 || s.InboundQty < 0 {
		return invalid(KindInventorySnapshot, "snapshot quantities must not be negative")
	}
	return nil
}

// InventoryBalance is the latest ending balance per warehouse x product.
// Written independently of movements; it is not a rollup.
type InventoryBalance struct {
	WarehouseKey  dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	ProductKey    dimension.Key `db:"product_key" json:"productKey"`
	EndingBalance int64         `db:"ending_balance" json:"endingBalance"`
	LastUpdated   time.Time     `db:"last_updated" json:"lastUpdated"`
}

func (InventoryBalance) FactKind() Kind { return KindInventoryBalance }

func (b InventoryBalance) References() []dimension.Ref {
	return []dimension.Ref{
		{Kind: dimension.KindWarehouse, Key: b.WarehouseKey},
		{Kind: dimension.KindProduct, Key: b.ProductKey},
	}
}

func (b InventoryBalance) Validate() error {
	if b.LastUpdated.IsZero() {
		return invalid(KindInventoryBalance, "last_updated is required")
	}
	return nil
}

// InventoryDailyBalance is the ending balance per warehouse x product x day.
type InventoryDailyBalance struct {
	WarehouseKey  dimension.Key `db:"warehouse_key" json:"warehouseKey"`
	ProductKey    dimension.Key `db:"product_key" json:"productKey"`
	DateKey       dimension.Key `db:"date_key" json:"dateKey"`
	EndingBalance int64         `db:"ending_balance" json:"endingBalance"`
}

func (InventoryDailyBalance) FactKind() Kind { return KindInventoryDailyBalance }

func (b InventoryDailyBalance) References() []dimension.Ref {
	return []dimension.Ref{
		{Kind: dimension.KindWarehouse, Key: b.WarehouseKey},
		{Kind: dimension.KindProduct, Key: b.ProductKey},
		{Kind: dimension.KindDate, Key: b.DateKey},
	}
}

func (InventoryDailyBalance) Validate() error { return nil }

func invalid(kind Kind, message string) *apperror.AppError {
	return apperror.NewValidation(message).WithDetail("fact", string(kind))
}
