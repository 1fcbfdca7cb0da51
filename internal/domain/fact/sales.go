package fact

import (
	"time"

	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/metrics"
)

// SaleLine is the raw input of one sold line item before derived metrics.
type SaleLine struct {
	Date             time.Time
	ProductKey       dimension.Key
	StoreKey         dimension.Key
	CustomerKey      dimension.Key
	PaymentMethodKey dimension.Key
	PromotionKey     *dimension.Key
	TransactionID    string
	Quantity         int64
	UnitPrice        types.Money
	FlatDiscount     types.Money // applies when no eligible promotion is attached
}

// BuildSale computes the derived fields of line against the product cost and
// the attached promotion. The promotion is kept on the fact only when its
// window covers the sale date; otherwise the line keeps its flat discount.
// The unit price is rounded to cents before any amount is derived from it.
func BuildSale(line SaleLine, product dimension.Product, promo *dimension.Promotion) SalesFact {
	price := types.RoundMoney(line.UnitPrice)
	in := metrics.Input{
		Quantity:     line.Quantity,
		UnitPrice:    price,
		CostPerUnit:  product.CostPerUnit,
		FlatDiscount: line.FlatDiscount,
	}

	var promoKey *dimension.Key
	if promo != nil && promo.ActiveOn(line.Date) {
		pct := promo.DiscountPercent
		in.DiscountPercent = &pct
		key := promo.Key
		promoKey = &key
	}

	res := metrics.Calculate(in)

	return SalesFact{
		DateKey:          dimension.DateKeyOf(line.Date),
		ProductKey:       line.ProductKey,
		StoreKey:         line.StoreKey,
		CustomerKey:      line.CustomerKey,
		PaymentMethodKey: line.PaymentMethodKey,
		PromotionKey:     promoKey,
		TransactionID:    line.TransactionID,
		Quantity:         line.Quantity,
		UnitPrice:        price,
		SalesAmount:      res.SalesAmount,
		DiscountAmount:   res.DiscountAmount,
		GrossProfit:      res.GrossProfit,
		MarginPercent:    res.MarginPercent,
	}
}
