package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/types"
	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/loader"
	"retaildw/internal/infrastructure/http/v1/handlers"
)

// fakeAnalytics records arguments; unimplemented methods panic through the
// nil embedded interface.
type fakeAnalytics struct {
	handlers.AnalyticsService

	calls      int
	lastRange  analytics.DateRange
	lastN      int
	lastFilter analytics.InventoryFilter
	lastStore  *dimension.Key
	lastTables []string
	lastLimit  int
	err        error
}

func (f *fakeAnalytics) DailySales(_ context.Context, r analytics.DateRange) ([]analytics.DailySales, error) {
	f.calls++
	f.lastRange = r
	if f.err != nil {
		return nil, f.err
	}
	return []analytics.DailySales{{
		Date:       time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		TotalSales: types.MustMoney("2000.50"),
	}}, nil
}

func (f *fakeAnalytics) TopProducts(_ context.Context, r analytics.DateRange, n int) ([]analytics.ProductSales, error) {
	f.calls++
	f.lastRange, f.lastN = r, n
	return nil, nil
}

func (f *fakeAnalytics) ProductStoreSales(_ context.Context, r analytics.DateRange, store *dimension.Key) ([]analytics.ProductStoreSales, error) {
	f.calls++
	f.lastRange, f.lastStore = r, store
	return nil, nil
}

func (f *fakeAnalytics) InventoryLevels(_ context.Context, filter analytics.InventoryFilter) ([]analytics.InventoryLevel, error) {
	f.calls++
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeAnalytics) SalesByRegion(context.Context) ([]analytics.RegionSales, error) {
	panic("boom")
}

func (f *fakeAnalytics) BrowseTable(_ context.Context, name string, limit int) (*analytics.TableBrowse, error) {
	f.calls++
	f.lastTables, f.lastLimit = []string{name}, limit
	return &analytics.TableBrowse{Table: name, Columns: []string{}, Rows: [][]any{}}, nil
}

func (f *fakeAnalytics) BrowseTables(_ context.Context, names []string, limit int) []*analytics.TableBrowse {
	f.calls++
	f.lastTables, f.lastLimit = names, limit
	out := make([]*analytics.TableBrowse, 0, len(names))
	for _, n := range names {
		out = append(out, &analytics.TableBrowse{Table: n, Columns: []string{}, Rows: [][]any{}})
	}
	return out
}

type fakeLoads struct {
	run *loader.Run
	err error
}

func (f *fakeLoads) LastRun(context.Context) (*loader.Run, error) { return f.run, f.err }

func newTestRouter(svc *fakeAnalytics, loads *fakeLoads) http.Handler {
	return NewRouter(RouterConfig{Analytics: svc, Loads: loads})
}

func do(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestRouter_DailySales(t *testing.T) {
	svc := &fakeAnalytics{}
	rec, body := do(t, newTestRouter(svc, nil), "/api/v1/sales/daily?start=2025-11-01&end=2025-11-30")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	data := body["data"].([]any)
	assert.Equal(t, "2000.5", data[0].(map[string]any)["totalSales"])

	require.NotNil(t, svc.lastRange.Start)
	assert.Equal(t, "2025-11-01", svc.lastRange.Start.Format(dimension.DateLayout))
	assert.Equal(t, "2025-11-30", svc.lastRange.End.Format(dimension.DateLayout))
}

func TestRouter_InvalidRangeIsRejectedBeforeQuerying(t *testing.T) {
	svc := &fakeAnalytics{}
	h := newTestRouter(svc, nil)

	for _, target := range []string{
		"/api/v1/sales/daily?start=2025-11-30&end=2025-11-01",
		"/api/v1/sales/daily?start=30-11-2025",
	} {
		rec, body := do(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, apperror.CodeInvalidRange, body["code"], target)
	}
	assert.Zero(t, svc.calls)
}

func TestRouter_EmptyResultIsEmptyList(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeAnalytics{}, nil), "/api/v1/sales/top-products")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, float64(0), body["count"])
}

func TestRouter_QueryParameters(t *testing.T) {
	svc := &fakeAnalytics{}
	h := newTestRouter(svc, nil)

	rec, _ := do(t, h, "/api/v1/sales/top-products?n=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.lastN)

	rec, _ = do(t, h, "/api/v1/sales/product-store?store=4")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastStore)
	assert.Equal(t, dimension.Key(4), *svc.lastStore)

	rec, _ = do(t, h, "/api/v1/inventory/levels?warehouse=2&product=7&start=2025-11-05")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFilter.WarehouseKey)
	assert.Equal(t, dimension.Key(2), *svc.lastFilter.WarehouseKey)
	assert.Equal(t, dimension.Key(7), *svc.lastFilter.ProductKey)
	assert.NotNil(t, svc.lastFilter.Range.Start)
	assert.Nil(t, svc.lastFilter.Range.End)
}

func TestRouter_MalformedParameterIsValidationError(t *testing.T) {
	svc := &fakeAnalytics{}
	h := newTestRouter(svc, nil)

	for _, target := range []string{
		"/api/v1/sales/top-products?n=abc",
		"/api/v1/inventory/levels?warehouse=x",
	} {
		rec, body := do(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, apperror.CodeValidation, body["code"], target)
	}
	assert.Zero(t, svc.calls)
}

func TestRouter_Browse(t *testing.T) {
	svc := &fakeAnalytics{}
	h := newTestRouter(svc, nil)

	rec, body := do(t, h, "/api/v1/browse?tables=dim_store,%20fact_sales,&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"dim_store", "fact_sales"}, svc.lastTables)
	assert.Equal(t, 3, svc.lastLimit)
	assert.Equal(t, float64(2), body["count"])

	rec, body = do(t, h, "/api/v1/browse/no_such_table")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_such_table", body["table"])
	assert.Equal(t, 0, svc.lastLimit)
}

func TestRouter_ErrorMapping(t *testing.T) {
	svc := &fakeAnalytics{err: apperror.NewDatabase(errors.New("relation fact_sales does not exist"))}
	rec, body := do(t, newTestRouter(svc, nil), "/api/v1/sales/daily")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.CodeDatabase, body["code"])
	assert.NotContains(t, rec.Body.String(), "relation fact_sales")
}

func TestRouter_PanicIsRecovered(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeAnalytics{}, nil), "/api/v1/sales/by-region")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
}

func TestRouter_LastLoad(t *testing.T) {
	run := &loader.Run{Status: loader.StatusCompleted, RowCounts: map[string]int64{"fact_sales": 3}}
	rec, body := do(t, newTestRouter(&fakeAnalytics{}, &fakeLoads{run: run}), "/api/v1/loads/last")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])

	rec, body = do(t, newTestRouter(&fakeAnalytics{}, &fakeLoads{err: apperror.NewNotFound("dw_load_runs", "last")}), "/api/v1/loads/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestRouter_Health(t *testing.T) {
	health := handlers.NewHealthHandler(nil, "test")
	health.AddCheck("cache", func(context.Context) error { return errors.New("connection refused") })
	h := NewRouter(RouterConfig{Analytics: &fakeAnalytics{}, Health: health})

	rec, body := do(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", body["status"])

	rec, _ = do(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
