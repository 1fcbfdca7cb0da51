package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"retaildw/internal/core/apperror"
	"retaildw/internal/core/tx"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/metrics"
	"retaildw/pkg/logger"
)

const (
	// DefaultTopN is the result size of the top-N operations when n is unset.
	DefaultTopN = 5
	// MaxTopN bounds n for the top-N operations.
	MaxTopN = 100
)

// Options configures the query engine.
type Options struct {
	BrowseDefaultLimit   int
	BrowseMaxLimit       int
	DashboardParallelism int
}

// DefaultOptions returns the defaults used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		BrowseDefaultLimit:   10,
		BrowseMaxLimit:       100,
		DashboardParallelism: 4,
	}
}

// Service provides the analytical operations. Every call runs in its own
// read-only transaction and may be answered from the result cache.
type Service struct {
	repo  Repository
	txm   tx.ReadOnlyManager
	cache ResultCache
	opts  Options
}

// NewService creates a new analytics service. cache may be nil.
func NewService(repo Repository, txm tx.ReadOnlyManager, cache ResultCache, opts Options) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	def := DefaultOptions()
	if opts.BrowseMaxLimit <= 0 {
		opts.BrowseMaxLimit = def.BrowseMaxLimit
	}
	if opts.BrowseDefaultLimit <= 0 {
		opts.BrowseDefaultLimit = def.BrowseDefaultLimit
	}
	if opts.DashboardParallelism <= 0 {
		opts.DashboardParallelism = def.DashboardParallelism
	}
	return &Service{repo: repo, txm: txm, cache: cache, opts: opts}
}

// --- Sales ---

// DailySales returns total sales per date in ascending date order.
// Dates without sales are omitted.
func (s *Service) DailySales(ctx context.Context, r DateRange) ([]DailySales, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("daily_sales", r.String()), func(ctx context.Context) ([]DailySales, error) {
		return s.repo.DailySales(ctx, r)
	}, "daily sales")
}

// PaymentSummary returns total sales per payment type, largest first.
func (s *Service) PaymentSummary(ctx context.Context) ([]PaymentTotal, error) {
	return query(ctx, s, cacheKey("payment_summary"), s.repo.PaymentSummary, "payment summary")
}

// PaymentMargin returns Σgross_profit / Σsales_amount per payment type,
// rounded to 4 places and ordered by payment type. A type without sales has
// margin 0.
func (s *Service) PaymentMargin(ctx context.Context, r DateRange) ([]PaymentMargin, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("payment_margin", r.String()), func(ctx context.Context) ([]PaymentMargin, error) {
		rows, err := s.repo.PaymentProfit(ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]PaymentMargin, 0, len(rows))
		for _, row := range rows {
			out = append(out, PaymentMargin{
				PaymentType: row.PaymentType,
				Margin:      metrics.Ratio(row.TotalProfit, row.TotalSales, metrics.RatioPlaces),
			})
		}
		return out, nil
	}, "payment margin")
}

// TopProducts returns at most n products by total sales, largest first.
// Ties are broken by product key.
func (s *Service) TopProducts(ctx context.Context, r DateRange, n int) ([]ProductSales, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	n = topN(n)
	return query(ctx, s, cacheKey("top_products", r.String(), strconv.Itoa(n)), func(ctx context.Context) ([]ProductSales, error) {
		return s.repo.TopProducts(ctx, r, n)
	}, "top products")
}

// CategorySales returns total sales per product category.
func (s *Service) CategorySales(ctx context.Context, r DateRange) ([]CategorySales, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("category_sales", r.String()), func(ctx context.Context) ([]CategorySales, error) {
		return s.repo.CategorySales(ctx, r)
	}, "category sales")
}

// BasketFrequency returns the n products appearing in the most distinct
// transactions.
func (s *Service) BasketFrequency(ctx context.Context, n int) ([]BasketFrequency, error) {
	n = topN(n)
	return query(ctx, s, cacheKey("basket_frequency", strconv.Itoa(n)), func(ctx context.Context) ([]BasketFrequency, error) {
		return s.repo.BasketFrequency(ctx, n)
	}, "basket frequency")
}

// SalesByRegion returns total sales per store region, largest first.
func (s *Service) SalesByRegion(ctx context.Context) ([]RegionSales, error) {
	return query(ctx, s, cacheKey("sales_by_region"), s.repo.SalesByRegion, "sales by region")
}

// Summary returns the KPI totals over r.
func (s *Service) Summary(ctx context.Context, r DateRange) (*Summary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("summary", r.String()), func(ctx context.Context) (*Summary, error) {
		t, err := s.repo.SummaryTotals(ctx, r)
		if err != nil {
			return nil, err
		}
		return &Summary{
			TotalSales:    t.TotalSales,
			TotalQuantity: t.TotalQuantity,
			LineCount:     t.LineCount,
			Transactions:  t.Transactions,
			TotalDiscount: t.TotalDiscount,
			TotalProfit:   t.TotalProfit,
			MarginPercent: metrics.Percent(t.TotalProfit, t.TotalSales),
		}, nil
	}, "summary")
}

// ProductDailySales returns sales per date and product.
func (s *Service) ProductDailySales(ctx context.Context, r DateRange) ([]ProductDailySales, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("product_daily", r.String()), func(ctx context.Context) ([]ProductDailySales, error) {
		return s.repo.ProductDailySales(ctx, r)
	}, "product daily sales")
}

// ProductStoreSales returns quantity and sales per store and product,
// optionally for a single store.
func (s *Service) ProductStoreSales(ctx context.Context, r DateRange, storeKey *dimension.Key) ([]ProductStoreSales, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("product_store", r.String(), optKey(storeKey)), func(ctx context.Context) ([]ProductStoreSales, error) {
		return s.repo.ProductStoreSales(ctx, r, storeKey)
	}, "product store sales")
}

// ProductPriceStats returns average, minimum and maximum unit price per product.
func (s *Service) ProductPriceStats(ctx context.Context, r DateRange) ([]ProductPriceStats, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("price_stats", r.String()), func(ctx context.Context) ([]ProductPriceStats, error) {
		return s.repo.ProductPriceStats(ctx, r)
	}, "product price stats")
}

// --- Promotions ---

// PromotionSummary returns line count and sales per promotion for lines
// that carry a promotion, largest sales first.
func (s *Service) PromotionSummary(ctx context.Context) ([]PromotionSummary, error) {
	return query(ctx, s, cacheKey("promotion_summary"), s.repo.PromotionSummary, "promotion summary")
}

// TopPromotions returns the n promotions with the highest sales along with
// the discount they gave away.
func (s *Service) TopPromotions(ctx context.Context, n int) ([]PromotionPerformance, error) {
	n = topN(n)
	return query(ctx, s, cacheKey("top_promotions", strconv.Itoa(n)), func(ctx context.Context) ([]PromotionPerformance, error) {
		return s.repo.TopPromotions(ctx, n)
	}, "top promotions")
}

// PromotionEligibility counts eligible store-days per promotion.
func (s *Service) PromotionEligibility(ctx context.Context, r DateRange, storeKey *dimension.Key) ([]PromotionEligibility, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("promotion_eligibility", r.String(), optKey(storeKey)), func(ctx context.Context) ([]PromotionEligibility, error) {
		return s.repo.PromotionEligibility(ctx, r, storeKey)
	}, "promotion eligibility")
}

// --- Inventory ---

// InventoryLevels returns on-hand quantity per date, summed over the
// warehouses and products the filter admits.
func (s *Service) InventoryLevels(ctx context.Context, f InventoryFilter) ([]InventoryLevel, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("inventory_levels", f.String()), func(ctx context.Context) ([]InventoryLevel, error) {
		return s.repo.InventoryLevels(ctx, f)
	}, "inventory levels")
}

// InventoryMovement returns moved quantity per date.
func (s *Service) InventoryMovement(ctx context.Context, f InventoryFilter) ([]MovementPoint, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("inventory_movement", f.String()), func(ctx context.Context) ([]MovementPoint, error) {
		return s.repo.InventoryMovement(ctx, f)
	}, "inventory movement")
}

// InventoryMovementByWarehouse returns moved quantity per warehouse ordered
// by warehouse name.
func (s *Service) InventoryMovementByWarehouse(ctx context.Context, r DateRange) ([]WarehouseMovement, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("movement_by_warehouse", r.String()), func(ctx context.Context) ([]WarehouseMovement, error) {
		return s.repo.MovementByWarehouse(ctx, r)
	}, "inventory movement by warehouse")
}

// InventoryMovementStacked returns the dense date x warehouse matrix of
// moved quantity. Absent cells are 0.
func (s *Service) InventoryMovementStacked(ctx context.Context, r DateRange) (*StackedMovement, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("movement_stacked", r.String()), func(ctx context.Context) (*StackedMovement, error) {
		cells, err := s.repo.MovementByDateWarehouse(ctx, r)
		if err != nil {
			return nil, err
		}
		return densify(cells), nil
	}, "inventory movement stacked")
}

// InventoryBalances returns the latest balance rows, optionally narrowed to
// one warehouse or product.
func (s *Service) InventoryBalances(ctx context.Context, warehouseKey, productKey *dimension.Key) ([]InventoryBalance, error) {
	return query(ctx, s, cacheKey("inventory_balances", optKey(warehouseKey), optKey(productKey)), func(ctx context.Context) ([]InventoryBalance, error) {
		return s.repo.InventoryBalances(ctx, warehouseKey, productKey)
	}, "inventory balances")
}

// InventoryDailyBalances returns ending balance per date, summed over the
// warehouses and products the filter admits.
func (s *Service) InventoryDailyBalances(ctx context.Context, f InventoryFilter) ([]InventoryLevel, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	return query(ctx, s, cacheKey("inventory_daily_balances", f.String()), func(ctx context.Context) ([]InventoryLevel, error) {
		return s.repo.InventoryDailyBalances(ctx, f)
	}, "inventory daily balances")
}

// --- Browse ---

// BrowseTable returns the first rows of a named table. An unknown name is
// not an error: the result has no columns and no rows.
func (s *Service) BrowseTable(ctx context.Context, name string, limit int) (*TableBrowse, error) {
	res, err := s.browse(ctx, name, limit)
	if err != nil {
		if apperror.IsUnknownEntity(err) {
			logger.Warn(ctx, "browse of unknown table", "table", name)
			return emptyBrowse(name), nil
		}
		return nil, err
	}
	return res, nil
}

// BrowseTables browses each name independently. A failing or unknown table
// yields an empty entry carrying its error; the other entries are unaffected.
// With no names every browsable table is returned.
func (s *Service) BrowseTables(ctx context.Context, names []string, limit int) []*TableBrowse {
	if len(names) == 0 {
		for _, t := range Tables {
			names = append(names, string(t))
		}
	}

	out := make([]*TableBrowse, len(names))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.DashboardParallelism)
	for i, name := range names {
		g.Go(func() error {
			res, err := s.browse(ctx, name, limit)
			if err != nil {
				logger.Warn(ctx, "browse failed", "table", name, "error", err)
				res = emptyBrowse(name)
				res.Error = err.Error()
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) browse(ctx context.Context, name string, limit int) (*TableBrowse, error) {
	table, ok := ParseTable(name)
	if !ok {
		return nil, apperror.NewUnknownEntity(name)
	}
	limit = clampLimit(limit, s.opts.BrowseDefaultLimit, s.opts.BrowseMaxLimit)

	var res *TableBrowse
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repo.Browse(ctx, table, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("browse %s: %w", table, err)
	}
	return res, nil
}

// --- Dashboard ---

// Dashboard runs the overview sections concurrently. A failed section is
// reported in Dashboard.Errors and never aborts its siblings.
func (s *Service) Dashboard(ctx context.Context, r DateRange) (*Dashboard, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	d := &Dashboard{Range: r.String()}
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.DashboardParallelism)

	section := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				logger.Warn(ctx, "dashboard section failed", "section", name, "error", err)
				mu.Lock()
				if d.Errors == nil {
					d.Errors = make(map[string]string)
				}
				d.Errors[name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}

	section("summary", func() (err error) {
		d.Summary, err = s.Summary(ctx, r)
		return err
	})
	section("dailySales", func() (err error) {
		d.DailySales, err = s.DailySales(ctx, r)
		return err
	})
	section("topProducts", func() (err error) {
		d.TopProducts, err = s.TopProducts(ctx, r, DefaultTopN)
		return err
	})
	section("categorySales", func() (err error) {
		d.CategorySales, err = s.CategorySales(ctx, r)
		return err
	})
	section("paymentMargin", func() (err error) {
		d.PaymentMargin, err = s.PaymentMargin(ctx, r)
		return err
	})
	section("basketFrequency", func() (err error) {
		d.BasketFrequency, err = s.BasketFrequency(ctx, DefaultTopN)
		return err
	})
	section("salesByRegion", func() (err error) {
		d.SalesByRegion, err = s.SalesByRegion(ctx)
		return err
	})
	section("promotionSummary", func() (err error) {
		d.PromotionSummary, err = s.PromotionSummary(ctx)
		return err
	})

	_ = g.Wait()
	return d, nil
}

// query runs fn in a read-only transaction, going through the result cache
// when key is set. Cache failures fall back to the database. The result is
// stored under the generation observed before reading, never a later one.
func query[T any](ctx context.Context, s *Service, key string, fn func(ctx context.Context) (T, error), op string) (T, error) {
	var (
		out       T
		gen       Generation
		cacheable bool
	)
	if key != "" {
		g, hit, err := s.cache.Get(ctx, key, &out)
		switch {
		case err != nil:
			logger.Warn(ctx, "result cache read failed", "key", key, "error", err)
		case hit:
			return out, nil
		default:
			gen, cacheable = g, true
		}
	}

	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, gen, key, out); err != nil {
			logger.Warn(ctx, "result cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}

func topN(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	if n > MaxTopN {
		return MaxTopN
	}
	return n
}

func cacheKey(op string, parts ...string) string {
	return strings.Join(append([]string{op}, parts...), "|")
}

func optKey(k *dimension.Key) string {
	if k == nil {
		return "*"
	}
	return formatKey(*k)
}
