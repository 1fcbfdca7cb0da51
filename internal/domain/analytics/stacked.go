package analytics

import (
	"sort"
	"time"

	"retaildw/internal/domain/dimension"
)

// densify turns sparse (date, warehouse, qty) cells into a dense matrix over
// the sorted distinct dates and the warehouses seen. Warehouses are ordered
// by name, then key; cells for the same pair are summed.
func densify(cells []DatedWarehouseMovement) *StackedMovement {
	dateIndex := make(map[time.Time]int)
	var dates []time.Time
	type wh struct {
		key  dimension.Key
		name string
	}
	seen := make(map[dimension.Key]wh)

	for _, c := range cells {
		day := c.Date.UTC()
		if _, ok := dateIndex[day]; !ok {
			dateIndex[day] = 0
			dates = append(dates, day)
		}
		if _, ok := seen[c.WarehouseKey]; !ok {
			seen[c.WarehouseKey] = wh{key: c.WarehouseKey, name: c.WarehouseName}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		dateIndex[d] = i
	}

	warehouses := make([]wh, 0, len(seen))
	for _, w := range seen {
		warehouses = append(warehouses, w)
	}
	sort.Slice(warehouses, func(i, j int) bool {
		if warehouses[i].name != warehouses[j].name {
			return warehouses[i].name < warehouses[j].name
		}
		return warehouses[i].key < warehouses[j].key
	})

	series := make([]StackedSeries, len(warehouses))
	seriesIndex := make(map[dimension.Key]int, len(warehouses))
	for i, w := range warehouses {
		series[i] = StackedSeries{
			WarehouseKey:  w.key,
			WarehouseName: w.name,
			Quantities:    make([]int64, len(dates)),
		}
		seriesIndex[w.key] = i
	}

	for _, c := range cells {
		series[seriesIndex[c.WarehouseKey]].Quantities[dateIndex[c.Date.UTC()]] += c.Quantity
	}

	if dates == nil {
		dates = []time.Time{}
	}
	return &StackedMovement{Dates: dates, Series: series}
}
