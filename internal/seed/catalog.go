package seed

import (
	"fmt"

	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
)

var stores = []dimension.Store{
	{Name: "Indomaret A", City: "Jakarta", Region: "Jabodetabek"},
	{Name: "Indomaret B", City: "Bandung", Region: "Jawa Barat"},
	{Name: "Indomaret C", City: "Surabaya", Region: "Jawa Timur"},
	{Name: "Alfamart A", City: "Jakarta", Region: "Jabodetabek"},
	{Name: "Alfamart B", City: "Depok", Region: "Jabodetabek"},
	{Name: "Indomaret D", City: "Medan", Region: "Sumut"},
	{Name: "Indomaret E", City: "Makassar", Region: "Sulsel"},
	{Name: "Alfamart C", City: "Surabaya", Region: "Jawa Timur"},
	{Name: "Alfamart D", City: "Bandung", Region: "Jawa Barat"},
	{Name: "Indomaret F", City: "Bali", Region: "Bali"},
}

func product(name, category, brand string, cost int64) dimension.Product {
	return dimension.Product{Name: name, Category: category, Brand: brand, CostPerUnit: types.NewMoneyFromInt(cost)}
}

var products = []dimension.Product{
	product("Aqua 600ml", "Minuman", "Aqua", 2500),
	product("Aqua 1500ml", "Minuman", "Aqua", 4500),
	product("Indomie Goreng", "Makanan", "Indofood", 2800),
	product("Indomie Kari Ayam", "Makanan", "Indofood", 2800),
	product("Chitato 185g", "Snack", "Chitato", 14000),
	product("Lays BBQ", "Snack", "Lays", 9000),
	product("Sprite 390ml", "Minuman", "Coca Cola", 4000),
	product("Coca Cola 390ml", "Minuman", "Coca Cola", 4000),
	product("Teh Pucuk Harum", "Minuman", "Mayora", 3000),
	product("Kopi Kapal Api", "Minuman", "Kapal Api", 1500),
	product("Roma Kelapa", "Snack", "Roma", 7500),
	product("Tango Wafer", "Snack", "Tango", 6000),
	product("Silverqueen Mini", "Snack", "Silverqueen", 9500),
	product("Good Day Freeze", "Minuman", "Good Day", 5000),
	product("Mizone 500ml", "Minuman", "Mizone", 4500),
	product("Ultramilk Coklat", "Minuman", "Ultramilk", 5500),
	product("Bear Brand", "Minuman", "Nestle", 8500),
	product("Yakult", "Minuman", "Yakult", 2000),
	product("Pepsodent 190g", "Personal Care", "Pepsodent", 12000),
	product("Sunsilk Hitam", "Personal Care", "Sunsilk", 17000),
}

var paymentTypes = []string{"CASH", "OVO", "GOPAY", "DANA", "EDC"}

var warehouses = []dimension.Warehouse{
	{Name: "WH Cikarang", City: "Bekasi", Capacity: 5000},
	{Name: "WH Surabaya", City: "Surabaya", Capacity: 3000},
	{Name: "WH Medan", City: "Medan", Capacity: 2000},
}

var (
	maleNames   = []string{"Budi", "Agus", "Doni", "Rangga", "Rudi", "Kevin", "Andre", "Rizky"}
	femaleNames = []string{"Siti", "Anisa", "Nadia", "Putri", "Dewi", "Ratna", "Ayu", "Bella"}
)

const customerCount = 50

func (g *generator) customers() []dimension.Customer {
	out := make([]dimension.Customer, 0, customerCount)
	for i := 0; i < customerCount; i++ {
		name, gender := pick(g.rnd, maleNames), "M"
		if g.rnd.Float64() >= 0.5 {
			name, gender = pick(g.rnd, femaleNames), "F"
		}
		out = append(out, dimension.Customer{
			Name:   fmt.Sprintf("Customer %s%d", name, i),
			Gender: gender,
			Age:    between(g.rnd, 18, 55),
		})
	}
	return out
}

// promotionPlan places a promotion at day offsets [from, to] of the range.
type promotionPlan struct {
	name    string
	kind    string
	percent int64
	from    int
	to      int // negative counts from the last day
}

var promotionPlans = []promotionPlan{
	{name: "Promo 11.11", kind: "FLASH_SALE", percent: 11, from: 10, to: 10},
	{name: "Weekend Hemat", kind: "PERCENT", percent: 5, from: 0, to: -1},
	{name: "Gajian Sale", kind: "PAYDAY", percent: 10, from: 24, to: -1},
}
