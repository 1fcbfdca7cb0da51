//go:build integration

package postgres_test

// Integration tests against a real Postgres via testcontainers.
// Run with: go test -tags integration ./internal/infrastructure/storage/postgres/... -v

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/types"
	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
	"retaildw/internal/domain/loader"
	"retaildw/internal/infrastructure/storage/postgres"
	"retaildw/internal/infrastructure/storage/postgres/analytics_repo"
	"retaildw/internal/infrastructure/storage/postgres/dimension_repo"
	"retaildw/internal/infrastructure/storage/postgres/fact_repo"
	"retaildw/pkg/numerator"
)

type testEnv struct {
	pool      *postgres.Pool
	txm       *postgres.TxManager
	loader    *loader.Loader
	analytics *analytics.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("retail_dw_test"),
		tcPostgres.WithUsername("retaildw"),
		tcPostgres.WithPassword("retaildw"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.ResetSchema(ctx, pool))

	txm := postgres.NewTxManager(pool, 5*time.Second)
	runs, err := postgres.NewLoadRunLog(txm)
	require.NoError(t, err)

	catalog := dimension.NewCatalog(dimension_repo.NewRepo(txm))
	ids := numerator.NewWithQuerierFunc(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	return &testEnv{
		pool: pool,
		txm:  txm,
		loader: loader.NewLoader(loader.Deps{
			TxManager:      txm.ForLoads(),
			Catalog:        catalog,
			Facts:          fact.NewStore(fact_repo.NewRepo(txm), catalog),
			Runs:           runs,
			TransactionIDs: ids.Sequence(numerator.TransactionConfig(), numerator.RangeOptions(10)),
		}, loader.Options{Timeout: time.Minute}),
		analytics: analytics.NewService(analytics_repo.NewRepo(txm), txm, nil, analytics.DefaultOptions()),
	}
}

var (
	nov1 = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	nov2 = time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)
)

type seeded struct {
	stores, products, payments, warehouses []dimension.Key
	customer, promo                        dimension.Key
}

func loadFixture(t *testing.T, env *testEnv) {
	t.Helper()
	var s seeded

	_, err := env.loader.Load(context.Background(), func(ctx context.Context, sess *loader.Session) error {
		if _, err := sess.LoadDimension(ctx, []dimension.Row{dimension.NewDateDim(nov1), dimension.NewDateDim(nov2)}); err != nil {
			return err
		}
		var err error
		if s.stores, err = sess.LoadDimension(ctx, []dimension.Row{
			dimension.Store{Name: "Indomaret A", City: "Jakarta", Region: "Jabodetabek"},
			dimension.Store{Name: "Indomaret B", City: "Bandung", Region: "Jawa Barat"},
		}); err != nil {
			return err
		}
		if s.products, err = sess.LoadDimension(ctx, []dimension.Row{
			dimension.Product{Name: "Aqua 600ml", Category: "Minuman", Brand: "Aqua", CostPerUnit: types.NewMoneyFromInt(1000)},
			dimension.Product{Name: "Chitato 185g", Category: "Snack", Brand: "Chitato", CostPerUnit: types.NewMoneyFromInt(8000)},
		}); err != nil {
			return err
		}
		keys, err := sess.LoadDimension(ctx, []dimension.Row{
			dimension.Customer{Name: "Customer Budi0", Gender: "M", Age: 30},
			dimension.Promotion{Name: "Promo 11.11", Type: "PERCENT", DiscountPercent: types.NewMoneyFromInt(10), StartDate: nov1, EndDate: nov1},
		})
		if err != nil {
			return err
		}
		s.customer, s.promo = keys[0], keys[1]
		if s.payments, err = sess.LoadDimension(ctx, []dimension.Row{
			dimension.PaymentMethod{Type: "CASH"},
			dimension.PaymentMethod{Type: "OVO"},
		}); err != nil {
			return err
		}
		if s.warehouses, err = sess.LoadDimension(ctx, []dimension.Row{
			dimension.Warehouse{Name: "WH Bekasi", City: "Bekasi", Capacity: 1000},
			dimension.Warehouse{Name: "WH Surabaya", City: "Surabaya", Capacity: 800},
		}); err != nil {
			return err
		}

		line := func(date time.Time, product, payment int, qty, price int64) (fact.SaleLine, error) {
			txID, err := sess.NextTransactionID(ctx)
			return fact.SaleLine{
				Date:             date,
				ProductKey:       s.products[product],
				StoreKey:         s.stores[0],
				CustomerKey:      s.customer,
				PaymentMethodKey: s.payments[payment],
				TransactionID:    txID,
				Quantity:         qty,
				UnitPrice:        types.NewMoneyFromInt(price),
			}, err
		}

		var lines []fact.SaleLine
		for _, in := range []struct {
			date           time.Time
			product, pay   int
			qty, unitPrice int64
		}{
			{nov1, 0, 0, 2, 1500}, // 3000, profit 1000
			{nov1, 1, 1, 1, 10000},
			{nov2, 0, 0, 2, 1000}, // 2000, profit 0
		} {
			l, err := line(in.date, in.product, in.pay, in.qty, in.unitPrice)
			if err != nil {
				return err
			}
			lines = append(lines, l)
		}
		lines[1].PromotionKey = &s.promo
		if _, err := sess.LoadSales(ctx, lines); err != nil {
			return err
		}

		_, err = sess.LoadFact(ctx, fact.KindInventoryMovement, []fact.Row{
			fact.InventoryMovement{MovementType: fact.MovementIn, DateKey: dimension.DateKeyOf(nov1), WarehouseKey: s.warehouses[0], ProductKey: s.products[0], Quantity: 50},
			fact.InventoryMovement{MovementType: fact.MovementOut, DateKey: dimension.DateKeyOf(nov2), WarehouseKey: s.warehouses[1], ProductKey: s.products[0], Quantity: 5},
		})
		return err
	})
	require.NoError(t, err)
}

func TestWarehouse_LoadAndQuery(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	loadFixture(t, env)
	all := analytics.DateRange{}

	daily, err := env.analytics.DailySales(ctx, all)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].TotalSales.Equal(types.NewMoneyFromInt(13000)))
	assert.True(t, daily[1].TotalSales.Equal(types.NewMoneyFromInt(2000)))

	top, err := env.analytics.TopProducts(ctx, all, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Chitato 185g", top[0].ProductName)

	basket, err := env.analytics.BasketFrequency(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, basket)
	assert.Equal(t, int64(2), basket[0].BasketCount)

	promos, err := env.analytics.PromotionSummary(ctx)
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, int64(1), promos[0].TrxCount)

	summary, err := env.analytics.Summary(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.LineCount)
	assert.Equal(t, int64(3), summary.Transactions)
	assert.True(t, summary.TotalDiscount.Equal(types.NewMoneyFromInt(1000)), summary.TotalDiscount.String())

	stacked, err := env.analytics.InventoryMovementStacked(ctx, all)
	require.NoError(t, err)
	require.Len(t, stacked.Dates, 2)
	require.Len(t, stacked.Series, 2)
	assert.Equal(t, []int64{50, 0}, stacked.Series[0].Quantities)
	assert.Equal(t, []int64{0, 5}, stacked.Series[1].Quantities)

	browse, err := env.analytics.BrowseTable(ctx, "FACT_SALES", 2)
	require.NoError(t, err)
	assert.Len(t, browse.Rows, 2)
	assert.Contains(t, browse.Columns, "margin_percent")

	last, err := env.loader.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, loader.StatusCompleted, last.Status)
	assert.Equal(t, int64(3), last.RowCounts["fact_sales"])
	assert.NotEmpty(t, last.Steps)
}

func TestWarehouse_EmptyRangeReturnsEmptyResults(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	loadFixture(t, env)

	dec := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	daily, err := env.analytics.DailySales(ctx, analytics.DateRange{Start: &dec})
	require.NoError(t, err)
	assert.NotNil(t, daily)
	assert.Empty(t, daily)

	summary, err := env.analytics.Summary(ctx, analytics.DateRange{Start: &dec})
	require.NoError(t, err)
	assert.True(t, summary.TotalSales.IsZero())
	assert.True(t, summary.MarginPercent.IsZero())
}

func TestWarehouse_ReferentialViolationRollsBack(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.loader.Load(ctx, func(ctx context.Context, sess *loader.Session) error {
		if _, err := sess.LoadDimension(ctx, []dimension.Row{
			dimension.NewDateDim(nov1),
			dimension.Warehouse{Name: "WH Bekasi", Capacity: 10},
		}); err != nil {
			return err
		}
		_, err := sess.LoadFact(ctx, fact.KindInventorySnapshot, []fact.Row{
			fact.InventorySnapshot{WarehouseKey: 1, ProductKey: 404, DateKey: dimension.DateKeyOf(nov1), OnHandQty: 3},
		})
		return err
	})
	require.Error(t, err)
	assert.True(t, apperror.IsReferentialIntegrity(err))

	var dims int
	require.NoError(t, env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dim_warehouse").Scan(&dims))
	assert.Zero(t, dims, "dimension rows of a failed load are rolled back")

	last, err := env.loader.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, loader.StatusFailed, last.Status)
}

func TestWarehouse_ForeignKeyBackstop(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	err := env.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := fact_repo.NewRepo(env.txm).Append(ctx, fact.KindPromotionEligibility, []fact.Row{
			fact.PromotionEligibility{PromotionKey: 1, DateKey: 20251101, StoreKey: 1},
		})
		return err
	})
	require.Error(t, err)
	assert.True(t, apperror.IsReferentialIntegrity(err))
}

func TestWarehouse_DateDimensionIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	repo := dimension_repo.NewRepo(env.txm)

	for i := 0; i < 2; i++ {
		key, err := repo.Insert(ctx, dimension.NewDateDim(nov1))
		require.NoError(t, err)
		assert.Equal(t, dimension.Key(20251101), key)
	}

	var n int
	require.NoError(t, env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dim_date").Scan(&n))
	assert.Equal(t, 1, n)
}
