package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retaildw/internal/core/apperror"
	appctx "retaildw/internal/core/context"
	"retaildw/internal/core/types"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
)

// warehouse is an in-memory store whose writes become visible only when the
// surrounding stub transaction commits.
type warehouse struct {
	nextKey dimension.Key

	dims    map[dimension.Kind]map[dimension.Key]dimension.Row
	facts   map[fact.Kind][]fact.Row
	pending *warehouse
}

func newWarehouse() *warehouse {
	return &warehouse{
		nextKey: 1,
		dims:    make(map[dimension.Kind]map[dimension.Key]dimension.Row),
		facts:   make(map[fact.Kind][]fact.Row),
	}
}

func (w *warehouse) begin() {
	p := newWarehouse()
	p.nextKey = w.nextKey
	for k, rows := range w.dims {
		p.dims[k] = make(map[dimension.Key]dimension.Row)
		for key, row := range rows {
			p.dims[k][key] = row
		}
	}
	for k, rows := range w.facts {
		p.facts[k] = append([]fact.Row(nil), rows...)
	}
	w.pending = p
}

func (w *warehouse) commit() {
	w.nextKey, w.dims, w.facts = w.pending.nextKey, w.pending.dims, w.pending.facts
	w.pending = nil
}

func (w *warehouse) view() *warehouse {
	if w.pending != nil {
		return w.pending
	}
	return w
}

// dimension.Repository

func (w *warehouse) Insert(_ context.Context, row dimension.Row) (dimension.Key, error) {
	v := w.view()
	if v.dims[row.Kind()] == nil {
		v.dims[row.Kind()] = make(map[dimension.Key]dimension.Row)
	}
	if d, ok := row.(dimension.DateDim); ok {
		v.dims[dimension.KindDate][d.Key] = d
		return d.Key, nil
	}
	key := v.nextKey
	v.nextKey++
	v.dims[row.Kind()][key] = row
	return key, nil
}

func (w *warehouse) MissingKeys(_ context.Context, kind dimension.Kind, keys []dimension.Key) ([]dimension.Key, error) {
	var missing []dimension.Key
	for _, k := range keys {
		if _, ok := w.view().dims[kind][k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func (w *warehouse) GetProduct(_ context.Context, key dimension.Key) (*dimension.Product, error) {
	if p, ok := w.view().dims[dimension.KindProduct][key].(dimension.Product); ok {
		p.Key = key
		return &p, nil
	}
	return nil, apperror.NewNotFound("product", key)
}

func (w *warehouse) GetPromotion(_ context.Context, key dimension.Key) (*dimension.Promotion, error) {
	if p, ok := w.view().dims[dimension.KindPromotion][key].(dimension.Promotion); ok {
		p.Key = key
		return &p, nil
	}
	return nil, apperror.NewNotFound("promotion", key)
}

// fact.Repository

type factRepo struct{ w *warehouse }

func (r factRepo) Append(_ context.Context, kind fact.Kind, rows []fact.Row) (int64, error) {
	v := r.w.view()
	v.facts[kind] = append(v.facts[kind], rows...)
	return int64(len(rows)), nil
}

type stubTx struct {
	w         *warehouse
	commits   int
	rollbacks int
}

func (m *stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.w.begin()
	if err := fn(ctx); err != nil {
		m.w.pending = nil
		m.rollbacks++
		return err
	}
	m.w.commit()
	m.commits++
	return nil
}

type memRuns struct {
	runs []Run
	err  error
}

func (m *memRuns) Save(_ context.Context, run *Run) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRuns) Last(context.Context) (*Run, error) {
	if len(m.runs) == 0 {
		return nil, apperror.NewNotFound("load run", "last")
	}
	r := m.runs[len(m.runs)-1]
	return &r, nil
}

type countingCache struct{ invalidations int }

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

type seqIDs struct {
	n      int
	resets int
}

func (s *seqIDs) Next(context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("TX%04d", s.n), nil
}

func (s *seqIDs) Reset() { s.resets++ }

type fixture struct {
	w      *warehouse
	txm    *stubTx
	runs   *memRuns
	cache  *countingCache
	ids    *seqIDs
	loader *Loader
}

func newFixture() *fixture {
	w := newWarehouse()
	f := &fixture{
		w:     w,
		txm:   &stubTx{w: w},
		runs:  &memRuns{},
		cache: &countingCache{},
		ids:   &seqIDs{},
	}
	catalog := dimension.NewCatalog(w)
	f.loader = NewLoader(Deps{
		TxManager:      f.txm,
		Catalog:        catalog,
		Facts:          fact.NewStore(factRepo{w: w}, catalog),
		Runs:           f.runs,
		Cache:          f.cache,
		TransactionIDs: f.ids,
	}, Options{Timeout: time.Minute})
	return f
}

var saleDay = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// seedDims loads one row of every dimension a sale needs.
func seedDims(ctx context.Context, s *Session) (map[dimension.Kind]dimension.Key, error) {
	keys, err := s.LoadDimension(ctx, []dimension.Row{
		dimension.NewDateDim(saleDay),
		dimension.Store{Name: "Indomaret A", City: "Jakarta", Region: "Jabodetabek"},
		dimension.Product{Name: "Aqua 600ml", Category: "Beverage", Brand: "Aqua", CostPerUnit: types.NewMoneyFromInt(1000)},
		dimension.Customer{Name: "Budi", Gender: "M", Age: 30},
		dimension.PaymentMethod{Type: "CASH"},
	})
	if err != nil {
		return nil, err
	}
	return map[dimension.Kind]dimension.Key{
		dimension.KindDate:          keys[0],
		dimension.KindStore:         keys[1],
		dimension.KindProduct:       keys[2],
		dimension.KindCustomer:      keys[3],
		dimension.KindPaymentMethod: keys[4],
	}, nil
}

func TestLoader_Load_Commits(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	run, err := f.loader.Load(ctx, func(ctx context.Context, s *Session) error {
		_, hasRun := appctx.GetLoadRun(ctx)
		assert.True(t, hasRun)

		keys, err := seedDims(ctx, s)
		if err != nil {
			return err
		}
		txID, err := s.NextTransactionID(ctx)
		if err != nil {
			return err
		}
		_, err = s.LoadSales(ctx, []fact.SaleLine{{
			Date:             saleDay,
			ProductKey:       keys[dimension.KindProduct],
			StoreKey:         keys[dimension.KindStore],
			CustomerKey:      keys[dimension.KindCustomer],
			PaymentMethodKey: keys[dimension.KindPaymentMethod],
			TransactionID:    txID,
			Quantity:         2,
			UnitPrice:        types.NewMoneyFromInt(1500),
		}})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, int64(1), run.RowCounts["fact_sales"])
	assert.Equal(t, int64(1), run.RowCounts["dim_product"])
	assert.Equal(t, int64(6), run.TotalRows())
	assert.Equal(t, 1, f.txm.commits)
	assert.Equal(t, 1, f.cache.invalidations)

	require.Len(t, f.w.facts[fact.KindSales], 1)
	sale := f.w.facts[fact.KindSales][0].(fact.SalesFact)
	assert.Equal(t, "TX0001", sale.TransactionID)
	assert.True(t, sale.SalesAmount.Equal(types.NewMoneyFromInt(3000)))
	assert.True(t, sale.GrossProfit.Equal(types.NewMoneyFromInt(1000)))
	assert.True(t, sale.MarginPercent.Equal(types.MustMoney("33.33")))

	last, err := f.loader.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
}

func TestLoader_Load_ReferentialViolationRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	run, err := f.loader.Load(ctx, func(ctx context.Context, s *Session) error {
		keys, err := seedDims(ctx, s)
		if err != nil {
			return err
		}
		_, err = s.LoadFact(ctx, fact.KindSales, []fact.Row{fact.SalesFact{
			DateKey:          keys[dimension.KindDate],
			ProductKey:       keys[dimension.KindProduct],
			StoreKey:         999,
			CustomerKey:      keys[dimension.KindCustomer],
			PaymentMethodKey: keys[dimension.KindPaymentMethod],
			TransactionID:    "TX0001",
			Quantity:         1,
			UnitPrice:        types.NewMoneyFromInt(1000),
			SalesAmount:      types.NewMoneyFromInt(1000),
		}})
		return err
	})

	require.Error(t, err)
	assert.True(t, apperror.IsReferentialIntegrity(err))
	assert.Equal(t, StatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	assert.Equal(t, 1, f.txm.rollbacks)
	assert.Empty(t, f.w.dims, "dimensions from the failed load must not be visible")
	assert.Empty(t, f.w.facts)
	assert.Zero(t, f.cache.invalidations)
	assert.Equal(t, 1, f.ids.resets)

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, StatusFailed, f.runs.runs[0].Status)
}

func TestSession_LoadSales_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.loader.Load(ctx, func(ctx context.Context, s *Session) error {
		_, err := s.LoadSales(ctx, []fact.SaleLine{{Date: saleDay, ProductKey: 42, TransactionID: "TX0001", Quantity: 1}})
		return err
	})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeReferentialIntegrity, appErr.Code)
	assert.Equal(t, "product", appErr.Details["dimension"])
}

func TestSession_LoadSales_PromotionWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.loader.Load(ctx, func(ctx context.Context, s *Session) error {
		keys, err := seedDims(ctx, s)
		if err != nil {
			return err
		}
		nextDay := saleDay.AddDate(0, 0, 1)
		if _, err := s.LoadDimension(ctx, []dimension.Row{dimension.NewDateDim(nextDay)}); err != nil {
			return err
		}
		promoKeys, err := s.LoadDimension(ctx, []dimension.Row{dimension.Promotion{
			Name: "Payday", Type: "PERCENT", DiscountPercent: types.NewMoneyFromInt(10),
			StartDate: saleDay, EndDate: saleDay,
		}})
		if err != nil {
			return err
		}

		line := fact.SaleLine{
			ProductKey:       keys[dimension.KindProduct],
			StoreKey:         keys[dimension.KindStore],
			CustomerKey:      keys[dimension.KindCustomer],
			PaymentMethodKey: keys[dimension.KindPaymentMethod],
			PromotionKey:     &promoKeys[0],
			Quantity:         1,
			UnitPrice:        types.NewMoneyFromInt(2000),
			FlatDiscount:     types.NewMoneyFromInt(500),
		}
		inWindow, outOfWindow := line, line
		inWindow.Date, inWindow.TransactionID = saleDay, "TX0001"
		outOfWindow.Date, outOfWindow.TransactionID = nextDay, "TX0002"

		_, err = s.LoadSales(ctx, []fact.SaleLine{inWindow, outOfWindow})
		return err
	})
	require.NoError(t, err)

	rows := f.w.facts[fact.KindSales]
	require.Len(t, rows, 2)
	first, second := rows[0].(fact.SalesFact), rows[1].(fact.SalesFact)

	require.NotNil(t, first.PromotionKey)
	assert.True(t, first.DiscountAmount.Equal(types.NewMoneyFromInt(200)))
	assert.Nil(t, second.PromotionKey)
	assert.True(t, second.DiscountAmount.Equal(types.NewMoneyFromInt(500)))
}

func TestLoader_Load_AuditFailureAborts(t *testing.T) {
	f := newFixture()
	f.runs.err = errors.New("dw_load_runs is read-only")

	_, err := f.loader.Load(context.Background(), func(ctx context.Context, s *Session) error {
		_, err := s.LoadDimension(ctx, []dimension.Row{dimension.PaymentMethod{Type: "CASH"}})
		return err
	})

	require.Error(t, err)
	assert.Equal(t, 1, f.txm.rollbacks)
	assert.Empty(t, f.w.dims)
}
