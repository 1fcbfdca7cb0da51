// Package dimension provides the dimension catalog of the warehouse:
// descriptive entities with stable surrogate keys that every fact references.
// Rows are immutable once loaded; there is no slowly-changing-dimension versioning.
package dimension

import (
	"context"
	"strings"
	"time"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/types"
)

// Kind identifies a dimension table.
type Kind string

const (
	KindDate          Kind = "date"
	KindStore         Kind = "store"
	KindProduct       Kind = "product"
	KindCustomer      Kind = "customer"
	KindPaymentMethod Kind = "payment_method"
	KindPromotion     Kind = "promotion"
	KindWarehouse     Kind = "warehouse"
)

// Kinds lists every dimension in load order.
var Kinds = []Kind{
	KindDate, KindStore, KindProduct, KindCustomer, KindPaymentMethod, KindPromotion, KindWarehouse,
}

// Valid reports whether k is a known dimension kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Table returns the dimension's table name.
func (k Kind) Table() string {
	return "dim_" + string(k)
}

// Key is a surrogate key. Date keys use the YYYYMMDD form, every other
// dimension uses a database-assigned sequence.
type Key int64

// Ref is a foreign key held by a fact row.
type Ref struct {
	Kind Kind
	Key  Key
}

// Row is any dimension row that can be loaded into the catalog.
type Row interface {
	Kind() Kind
	Validate(ctx context.Context) error
}

// Store is a retail outlet.
type Store struct {
	Key    Key    `db:"store_key" json:"storeKey"`
	Name   string `db:"store_name" json:"storeName"`
	City   string `db:"city" json:"city"`
	Region string `db:"region" json:"region"`
}

func (Store) Kind() Kind { return KindStore }

func (s Store) Validate(_ context.Context) error {
	return requireNonEmpty(KindStore, "store_name", s.Name)
}

// Product carries the unit cost that gross profit is computed against.
type Product struct {
	Key         Key         `db:"product_key" json:"productKey"`
	Name        string      `db:"product_name" json:"productName"`
	Category    string      `db:"category" json:"category"`
	Brand       string      `db:"brand" json:"brand"`
	CostPerUnit types.Money `db:"cost_per_unit" json:"costPerUnit"`
}

func (Product) Kind() Kind { return KindProduct }

func (p Product) Validate(_ context.Context) error {
	if err := requireNonEmpty(KindProduct, "product_name", p.Name); err != nil {
		return err
	}
	if p.CostPerUnit.IsNegative() {
		return apperror.NewValidation("cost_per_unit must not be negative").
			WithDetail("dimension", string(KindProduct)).
			WithDetail("value", p.CostPerUnit.String())
	}
	return nil
}

// Customer is a shopper.
type Customer struct {
	Key    Key    `db:"customer_key" json:"customerKey"`
	Name   string `db:"customer_name" json:"customerName"`
	Gender string `db:"gender" json:"gender"`
	Age    int    `db:"age" json:"age"`
}

func (Customer) Kind() Kind { return KindCustomer }

func (c Customer) Validate(_ context.Context) error {
	if err := requireNonEmpty(KindCustomer, "customer_name", c.Name); err != nil {
		return err
	}
	if c.Age < 0 {
		return apperror.NewValidation("age must not be negative").
			WithDetail("dimension", string(KindCustomer))
	}
	return nil
}

// PaymentMethod is a tender type such as CASH or OVO.
type PaymentMethod struct {
	Key  Key    `db:"payment_method_key" json:"paymentMethodKey"`
	Type string `db:"payment_type" json:"paymentType"`
}

func (PaymentMethod) Kind() Kind { return KindPaymentMethod }

func (p PaymentMethod) Validate(_ context.Context) error {
	return requireNonEmpty(KindPaymentMethod, "payment_type", p.Type)
}

// Promotion is a discount campaign valid on [StartDate, EndDate].
type Promotion struct {
	Key             Key         `db:"promotion_key" json:"promotionKey"`
	Name            string      `db:"promotion_name" json:"promotionName"`
	Type            string      `db:"promotion_type" json:"promotionType"`
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	StartDate       time.Time   `db:"start_date" json:"startDate"`
	EndDate         time.Time   `db:"end_date" json:"endDate"`
}

func (Promotion) Kind() Kind { return KindPromotion }

func (p Promotion) Validate(_ context.Context) error {
	if err := requireNonEmpty(KindPromotion, "promotion_name", p.Name); err != nil {
		return err
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(types.NewMoneyFromInt(100)) {
		return apperror.NewValidation("discount_percent must be within [0, 100]").
			WithDetail("value", p.DiscountPercent.String())
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return apperror.NewValidation("promotion validity interval is required")
	}
	if calendarDay(p.EndDate).Before(calendarDay(p.StartDate)) {
		return apperror.NewValidation("promotion end_date is before start_date").
			WithDetail("start_date", p.StartDate.Format(DateLayout)).
			WithDetail("end_date", p.EndDate.Format(DateLayout))
	}
	return nil
}

// ActiveOn reports whether the promotion window covers the calendar day of t.
// Both ends are inclusive.
func (p Promotion) ActiveOn(t time.Time) bool {
	day := calendarDay(t)
	return !day.Before(calendarDay(p.StartDate)) && !day.After(calendarDay(p.EndDate))
}

// Warehouse is a stock location.
type Warehouse struct {
	Key      Key    `db:"warehouse_key" json:"warehouseKey"`
	Name     string `db:"warehouse_name" json:"warehouseName"`
	City     string `db:"city" json:"city"`
	Capacity int    `db:"capacity" json:"capacity"`
}

func (Warehouse) Kind() Kind { return KindWarehouse }

func (w Warehouse) Validate(_ context.Context) error {
	if err := requireNonEmpty(KindWarehouse, "warehouse_name", w.Name); err != nil {
		return err
	}
	if w.Capacity < 0 {
		return apperror.NewValidation("capacity must not be negative").
			WithDetail("dimension", string(KindWarehouse))
	}
	return nil
}

func requireNonEmpty(kind Kind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.NewValidation(field+" is required").
			WithDetail("dimension", string(kind)).
			WithDetail("field", field)
	}
	return nil
}
