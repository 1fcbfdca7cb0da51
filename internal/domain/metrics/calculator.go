// Package metrics derives the computed measures of a sales line
// (amount, discount, gross profit, margin) from its raw inputs.
// Functions here are pure and deterministic so the same code serves bulk
// loading and any future write path.
package metrics

import (
	"github.com/shopspring/decimal"

	"retaildw/internal/core/types"
)

// PercentPlaces is the scale of margin_percent.
const PercentPlaces int32 = 2

// RatioPlaces is the scale of aggregated margin ratios.
const RatioPlaces int32 = 4

var hundred = decimal.NewFromInt(100)

// Input holds the raw values of one sold line item.
type Input struct {
	Quantity    int64
	UnitPrice   types.Money
	CostPerUnit types.Money

	// DiscountPercent is set only when an eligible promotion is attached.
	DiscountPercent *types.Money

	// FlatDiscount applies when no promotion is eligible. Usually zero.
	FlatDiscount types.Money
}

// Result holds the derived fields written alongside the raw line.
type Result struct {
	SalesAmount    types.Money
	DiscountAmount types.Money
	GrossProfit    types.Money
	MarginPercent  types.Money
}

// Calculate derives the four computed fields of a sales line.
//
//	sales_amount    = quantity * unit_price
//	discount_amount = sales_amount * discount_percent / 100, or the flat default
//	gross_profit    = max(sales_amount - quantity * cost_per_unit, 0)
//	margin_percent  = gross_profit / sales_amount * 100, or 0 when sales_amount is 0
func Calculate(in Input) Result {
	qty := decimal.NewFromInt(in.Quantity)
	sales := types.RoundMoney(qty.Mul(in.UnitPrice))

	discount := in.FlatDiscount
	if in.DiscountPercent != nil {
		discount = sales.Mul(*in.DiscountPercent).Div(hundred)
	}
	discount = types.RoundMoney(discount)

	profit := sales.Sub(qty.Mul(in.CostPerUnit))
	if profit.IsNegative() {
		profit = decimal.Zero
	}
	profit = types.RoundMoney(profit)

	return Result{
		SalesAmount:    sales,
		DiscountAmount: discount,
		GrossProfit:    profit,
		MarginPercent:  Percent(profit, sales),
	}
}

// Percent returns num / den * 100 rounded to PercentPlaces, or 0 when den is
// not positive.
func Percent(num, den types.Money) types.Money {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Mul(hundred).Div(den).Round(PercentPlaces)
}

// Ratio returns num / den rounded to places, or 0 when den is zero.
func Ratio(num, den types.Money, places int32) types.Money {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Round(places)
}

// FloorPrice returns price, raised to cost when it would sell below cost.
func FloorPrice(price, cost types.Money) types.Money {
	return decimal.Max(price, cost)
}
