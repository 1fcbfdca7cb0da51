// Package seed generates the demo retail dataset: a month of sales across
// ten stores plus promotions and warehouse inventory.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
	"retaildw/internal/domain/metrics"
	"retaildw/pkg/logger"
)

// Sink receives the generated rows. *loader.Session implements it.
type Sink interface {
	LoadDimension(ctx context.Context, rows []dimension.Row) ([]dimension.Key, error)
	LoadFact(ctx context.Context, kind fact.Kind, rows []fact.Row) (int64, error)
	LoadSales(ctx context.Context, lines []fact.SaleLine) (int64, error)
	NextTransactionID(ctx context.Context) (string, error)
}

// Options configures the generator.
type Options struct {
	// Seed makes a run reproducible.
	Seed  int64
	Start time.Time
	Days  int
}

// DefaultOptions reproduces November 2025.
func DefaultOptions() Options {
	return Options{
		Seed:  42,
		Start: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		Days:  30,
	}
}

var flatDiscounts = []int64{0, 0, 0, 500, 1000}

type generator struct {
	rnd  *rand.Rand
	opts Options

	dates         []dimension.DateDim
	storeKeys     []dimension.Key
	productKeys   []dimension.Key
	customerKeys  []dimension.Key
	paymentKeys   []dimension.Key
	warehouseKeys []dimension.Key
	costs         map[dimension.Key]types.Money

	// eligible[dateKey][storeKey] lists the promotions running there that day.
	eligible map[dimension.Key]map[dimension.Key][]dimension.Key
}

// Run generates the dataset into sink.
func Run(ctx context.Context, sink Sink, opts Options) error {
	if opts.Days <= 0 {
		return fmt.Errorf("seed: days must be positive, got %d", opts.Days)
	}
	g := &generator{
		rnd:      rand.New(rand.NewPCG(uint64(opts.Seed), 0)),
		opts:     opts,
		costs:    make(map[dimension.Key]types.Money),
		eligible: make(map[dimension.Key]map[dimension.Key][]dimension.Key),
	}
	end := opts.Start.AddDate(0, 0, opts.Days-1)
	g.dates = dimension.DateRows(opts.Start, end)

	steps := []struct {
		name string
		fn   func(context.Context, Sink) error
	}{
		{"dimensions", g.loadDimensions},
		{"promotions", g.loadPromotions},
		{"sales", g.loadSales},
		{"inventory", g.loadInventory},
	}
	for _, step := range steps {
		if err := step.fn(ctx, sink); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		logger.Debug(ctx, "seed step done", "step", step.name)
	}
	return nil
}

func (g *generator) loadDimensions(ctx context.Context, sink Sink) error {
	if _, err := sink.LoadDimension(ctx, rows(g.dates)); err != nil {
		return err
	}

	var err error
	if g.storeKeys, err = sink.LoadDimension(ctx, rows(stores)); err != nil {
		return err
	}
	if g.productKeys, err = sink.LoadDimension(ctx, rows(products)); err != nil {
		return err
	}
	for i, key := range g.productKeys {
		g.costs[key] = products[i].CostPerUnit
	}
	if g.customerKeys, err = sink.LoadDimension(ctx, rows(g.customers())); err != nil {
		return err
	}

	payments := make([]dimension.PaymentMethod, 0, len(paymentTypes))
	for _, t := range paymentTypes {
		payments = append(payments, dimension.PaymentMethod{Type: t})
	}
	if g.paymentKeys, err = sink.LoadDimension(ctx, rows(payments)); err != nil {
		return err
	}
	g.warehouseKeys, err = sink.LoadDimension(ctx, rows(warehouses))
	return err
}

// loadPromotions writes the promotions and, for every day of each, the
// stores running it. A store joins a day with probability one half.
func (g *generator) loadPromotions(ctx context.Context, sink Sink) error {
	last := len(g.dates) - 1
	var promos []dimension.Promotion
	var windows [][2]int
	for _, p := range promotionPlans {
		from, to := p.from, p.to
		if to < 0 {
			to = last + 1 + to
		}
		if from > last || to < from {
			continue
		}
		to = min(to, last)
		promos = append(promos, dimension.Promotion{
			Name:            p.name,
			Type:            p.kind,
			DiscountPercent: types.NewMoneyFromInt(p.percent),
			StartDate:       g.dates[from].FullDate,
			EndDate:         g.dates[to].FullDate,
		})
		windows = append(windows, [2]int{from, to})
	}
	if len(promos) == 0 {
		return nil
	}

	keys, err := sink.LoadDimension(ctx, rows(promos))
	if err != nil {
		return err
	}

	var eligibility []fact.Row
	for i, promo := range keys {
		for d := windows[i][0]; d <= windows[i][1]; d++ {
			dateKey := g.dates[d].Key
			for _, store := range g.storeKeys {
				if g.rnd.IntN(2) == 0 {
					continue
				}
				eligibility = append(eligibility, fact.PromotionEligibility{
					PromotionKey: promo, DateKey: dateKey, StoreKey: store,
				})
				if g.eligible[dateKey] == nil {
					g.eligible[dateKey] = make(map[dimension.Key][]dimension.Key)
				}
				g.eligible[dateKey][store] = append(g.eligible[dateKey][store], promo)
			}
		}
	}
	_, err = sink.LoadFact(ctx, fact.KindPromotionEligibility, eligibility)
	return err
}

// loadSales writes 5-15 transactions per day of 1-4 lines each. A line
// takes a running promotion of its store three times in ten, otherwise a
// flat discount.
func (g *generator) loadSales(ctx context.Context, sink Sink) error {
	var lines []fact.SaleLine
	for _, day := range g.dates {
		for range between(g.rnd, 5, 15) {
			txID, err := sink.NextTransactionID(ctx)
			if err != nil {
				return err
			}
			for range between(g.rnd, 1, 4) {
				productKey := pick(g.rnd, g.productKeys)
				storeKey := pick(g.rnd, g.storeKeys)
				line := fact.SaleLine{
					Date:             day.FullDate,
					ProductKey:       productKey,
					StoreKey:         storeKey,
					CustomerKey:      pick(g.rnd, g.customerKeys),
					PaymentMethodKey: pick(g.rnd, g.paymentKeys),
					TransactionID:    txID,
					Quantity:         int64(between(g.rnd, 1, 5)),
					UnitPrice: metrics.FloorPrice(
						types.NewMoneyFromInt(int64(between(g.rnd, 3000, 25000))),
						g.costs[productKey],
					),
					FlatDiscount: types.NewMoneyFromInt(pick(g.rnd, flatDiscounts)),
				}
				if running := g.eligible[day.Key][storeKey]; len(running) > 0 && g.rnd.IntN(10) < 3 {
					promo := pick(g.rnd, running)
					line.PromotionKey = &promo
				}
				lines = append(lines, line)
			}
		}
	}
	_, err := sink.LoadSales(ctx, lines)
	return err
}

var movementTypes = []fact.MovementType{
	fact.MovementIn, fact.MovementIn, fact.MovementOut, fact.MovementOut,
	fact.MovementTransferIn, fact.MovementTransferOut, fact.MovementAdjustment,
}

// loadInventory writes movements, snapshots and balances. The three are
// generated independently; balances are not derived from movements.
func (g *generator) loadInventory(ctx context.Context, sink Sink) error {
	var movements, snapshots, daily []fact.Row
	running := make(map[[2]dimension.Key]int64)

	for _, day := range g.dates {
		for _, wh := range g.warehouseKeys {
			for range between(g.rnd, 2, 5) {
				mt := pick(g.rnd, movementTypes)
				qty := int64(between(g.rnd, 1, 50))
				if mt == fact.MovementAdjustment && g.rnd.IntN(2) == 0 {
					qty = -qty
				}
				movements = append(movements, fact.InventoryMovement{
					MovementType: mt,
					DateKey:      day.Key,
					WarehouseKey: wh,
					ProductKey:   pick(g.rnd, g.productKeys),
					Quantity:     qty,
					Remarks:      fmt.Sprintf("%s %s", mt, day.FullDate.Format(dimension.DateLayout)),
				})
			}

			for _, p := range g.productKeys {
				onHand := int64(between(g.rnd, 0, 500))
				snapshots = append(snapshots, fact.InventorySnapshot{
					WarehouseKey: wh,
					ProductKey:   p,
					DateKey:      day.Key,
					OnHandQty:    onHand,
					ReservedQty:  int64(between(g.rnd, 0, int(min(onHand, 50)))),
					InboundQty:   int64(between(g.rnd, 0, 100)),
				})

				cell := [2]dimension.Key{wh, p}
				if _, ok := running[cell]; !ok {
					running[cell] = int64(between(g.rnd, 100, 400))
				}
				running[cell] = max(0, running[cell]+int64(between(g.rnd, -30, 30)))
				daily = append(daily, fact.InventoryDailyBalance{
					WarehouseKey: wh, ProductKey: p, DateKey: day.Key, EndingBalance: running[cell],
				})
			}
		}
	}

	lastUpdated := g.dates[len(g.dates)-1].FullDate.Add(22 * time.Hour)
	var balances []fact.Row
	for _, wh := range g.warehouseKeys {
		for _, p := range g.productKeys {
			balances = append(balances, fact.InventoryBalance{
				WarehouseKey:  wh,
				ProductKey:    p,
				EndingBalance: running[[2]dimension.Key{wh, p}],
				LastUpdated:   lastUpdated,
			})
		}
	}

	for _, batch := range []struct {
		kind fact.Kind
		rows []fact.Row
	}{
		{fact.KindInventoryMovement, movements},
		{fact.KindInventorySnapshot, snapshots},
		{fact.KindInventoryDailyBalance, daily},
		{fact.KindInventoryBalance, balances},
	} {
		if _, err := sink.LoadFact(ctx, batch.kind, batch.rows); err != nil {
			return err
		}
	}
	return nil
}

func rows[T dimension.Row](items []T) []dimension.Row {
	out := make([]dimension.Row, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.IntN(len(items))]
}

// between returns a uniform int in [lo, hi].
func between(rnd *rand.Rand, lo, hi int) int {
	return lo + rnd.IntN(hi-lo+1)
}
