package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retaildw/internal/core/types"
)

func money(s string) types.Money { return types.MustMoney(s) }

func TestCalculate_NoPromotion(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantSales  string
		wantProfit string
		wantMargin string
	}{
		{
			name:       "price equals cost",
			in:         Input{Quantity: 2, UnitPrice: money("1000"), CostPerUnit: money("1000")},
			wantSales:  "2000",
			wantProfit: "0",
			wantMargin: "0",
		},
		{
			name:       "price above cost",
			in:         Input{Quantity: 2, UnitPrice: money("1500"), CostPerUnit: money("1000")},
			wantSales:  "3000",
			wantProfit: "1000",
			wantMargin: "33.33",
		},
		{
			name:       "price below cost clamps profit",
			in:         Input{Quantity: 3, UnitPrice: money("900"), CostPerUnit: money("1000")},
			wantSales:  "2700",
			wantProfit: "0",
			wantMargin: "0",
		},
		{
			name:       "zero cost is full margin",
			in:         Input{Quantity: 1, UnitPrice: money("2500"), CostPerUnit: money("0")},
			wantSales:  "2500",
			wantProfit: "2500",
			wantMargin: "100",
		},
		{
			name:       "zero quantity",
			in:         Input{Quantity: 0, UnitPrice: money("2500"), CostPerUnit: money("100")},
			wantSales:  "0",
			wantProfit: "0",
			wantMargin: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.in)

			assert.True(t, got.SalesAmount.Equal(money(tt.wantSales)), "sales %s", got.SalesAmount)
			assert.True(t, got.GrossProfit.Equal(money(tt.wantProfit)), "profit %s", got.GrossProfit)
			assert.True(t, got.MarginPercent.Equal(money(tt.wantMargin)), "margin %s", got.MarginPercent)
			assert.True(t, got.DiscountAmount.IsZero())
		})
	}
}

func TestCalculate_Discount(t *testing.T) {
	pct := money("10")

	withPromo := Calculate(Input{
		Quantity:        4,
		UnitPrice:       money("2500"),
		CostPerUnit:     money("2000"),
		DiscountPercent: &pct,
		FlatDiscount:    money("500"),
	})
	assert.True(t, withPromo.DiscountAmount.Equal(money("1000")))

	flat := Calculate(Input{
		Quantity:     4,
		UnitPrice:    money("2500"),
		CostPerUnit:  money("2000"),
		FlatDiscount: money("500"),
	})
	assert.True(t, flat.DiscountAmount.Equal(money("500")))
}

func TestCalculate_Bounds(t *testing.T) {
	for qty := int64(1); qty <= 5; qty++ {
		for price := int64(0); price <= 30000; price += 2999 {
			got := Calculate(Input{
				Quantity:    qty,
				UnitPrice:   types.NewMoneyFromInt(price),
				CostPerUnit: types.NewMoneyFromInt(12000),
			})

			assert.False(t, got.GrossProfit.IsNegative())
			assert.True(t, got.GrossProfit.LessThanOrEqual(got.SalesAmount))
			assert.False(t, got.MarginPercent.IsNegative())
			assert.True(t, got.MarginPercent.LessThanOrEqual(money("100")))
		}
	}
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(money("1"), money("3"), RatioPlaces).Equal(money("0.3333")))
	assert.True(t, Ratio(money("5"), money("0"), RatioPlaces).IsZero())
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(money("1000"), money("3000")).Equal(money("33.33")))
	assert.True(t, Percent(money("1"), money("0")).IsZero())
	assert.True(t, Percent(money("1"), money("-5")).IsZero())
}

func TestFloorPrice(t *testing.T) {
	assert.True(t, FloorPrice(money("900"), money("1000")).Equal(money("1000")))
	assert.True(t, FloorPrice(money("1500"), money("1000")).Equal(money("1500")))
}
