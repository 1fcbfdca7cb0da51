package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retaildw/internal/core/apperror"
	appctx "retaildw/internal/core/context"
	"retaildw/internal/core/tx"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
	"retaildw/pkg/logger"
)

// Deps holds the collaborators of a Loader. Cache and TransactionIDs are optional.
type Deps struct {
	TxManager      tx.Manager
	Catalog        *dimension.Catalog
	Facts          *fact.Store
	Runs           RunLog
	Cache          Invalidator
	TransactionIDs IDSource
}

// Options configures a Loader.
type Options struct {
	// Timeout bounds a whole load. Zero means no limit.
	Timeout time.Duration
}

// Loader runs bulk loads.
type Loader struct {
	deps Deps
	opts Options
}

// NewLoader creates a new loader.
func NewLoader(deps Deps, opts Options) *Loader {
	return &Loader{deps: deps, opts: opts}
}

// Load runs fn inside one read-write transaction. Any error returned by fn,
// including a referential integrity violation, rolls back every row written
// by the load. After commit the query result cache is invalidated.
func (l *Loader) Load(ctx context.Context, fn func(ctx context.Context, s *Session) error) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		RowCounts: make(map[string]int64),
	}
	ctx = appctx.WithLoadRun(ctx, run.ID)
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	logger.Info(ctx, "load started")

	sess := newSession(l, run)
	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		run.FinishedAt = time.Now().UTC()
		run.Status = StatusCompleted
		if err := l.deps.Runs.Save(ctx, run); err != nil {
			return fmt.Errorf("save load run: %w", err)
		}
		return nil
	})
	if err != nil {
		l.fail(ctx, run, err)
		return run, fmt.Errorf("load %s: %w", run.ID, err)
	}

	if l.deps.Cache != nil {
		if err := l.deps.Cache.Invalidate(ctx); err != nil {
			logger.Warn(ctx, "result cache invalidation failed", "error", err)
		}
	}

	logger.Info(ctx, "load completed",
		"rows", run.TotalRows(),
		"tables", len(run.RowCounts),
		"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

// LastRun returns the most recent load run.
func (l *Loader) LastRun(ctx context.Context) (*Run, error) {
	run, err := l.deps.Runs.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("last load run: %w", err)
	}
	return run, nil
}

// fail records a rolled back run. Row counts describe what was attempted.
func (l *Loader) fail(ctx context.Context, run *Run, cause error) {
	run.FinishedAt = time.Now().UTC()
	run.Status = StatusFailed
	run.Error = cause.Error()

	if r, ok := l.deps.TransactionIDs.(interface{ Reset() }); ok {
		r.Reset()
	}

	logger.Error(ctx, "load rolled back", "error", cause, "attempted_rows", run.TotalRows())

	if err := l.deps.Runs.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn(ctx, "save failed load run", "error", err)
	}
}

// Session is the write handle passed to a load function. It is not safe
// for concurrent use; a load is a single-writer phase.
type Session struct {
	loader     *Loader
	run        *Run
	products   map[dimension.Key]*dimension.Product
	promotions map[dimension.Key]*dimension.Promotion
}

func newSession(l *Loader, run *Run) *Session {
	return &Session{
		loader:     l,
		run:        run,
		products:   make(map[dimension.Key]*dimension.Product),
		promotions: make(map[dimension.Key]*dimension.Promotion),
	}
}

// RunID returns the id of the running load.
func (s *Session) RunID() uuid.UUID {
	return s.run.ID
}

// LoadDimension appends dimension rows and returns their keys in input order.
func (s *Session) LoadDimension(ctx context.Context, rows []dimension.Row) ([]dimension.Key, error) {
	started := time.Now()
	keys := make([]dimension.Key, 0, len(rows))
	counts := make(map[string]int64)
	for i, row := range rows {
		key, err := s.loader.deps.Catalog.Upsert(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("dimension row %d: %w", i, err)
		}
		keys = append(keys, key)
		counts[row.Kind().Table()]++
	}
	for table, n := range counts {
		s.run.record(table, n, started)
	}
	return keys, nil
}

// LoadFact appends fact rows of one kind after checking their references.
func (s *Session) LoadFact(ctx context.Context, kind fact.Kind, rows []fact.Row) (int64, error) {
	started := time.Now()
	n, err := s.loader.deps.Facts.Append(ctx, kind, rows)
	if err != nil {
		return 0, err
	}
	s.run.record(kind.Table(), n, started)
	return n, nil
}

// LoadSales derives the computed fields of each line from its product cost
// and promotion, then appends the resulting sales facts.
func (s *Session) LoadSales(ctx context.Context, lines []fact.SaleLine) (int64, error) {
	rows := make([]fact.Row, 0, len(lines))
	for _, line := range lines {
		product, err := s.product(ctx, line.ProductKey)
		if err != nil {
			return 0, err
		}
		var promo *dimension.Promotion
		if line.PromotionKey != nil {
			if promo, err = s.promotion(ctx, *line.PromotionKey); err != nil {
				return 0, err
			}
		}
		rows = append(rows, fact.BuildSale(line, *product, promo))
	}
	return s.LoadFact(ctx, fact.KindSales, rows)
}

// NextTransactionID allocates the next transaction id inside the load.
func (s *Session) NextTransactionID(ctx context.Context) (string, error) {
	if s.loader.deps.TransactionIDs == nil {
		return "", apperror.NewInternal(fmt.Errorf("transaction id source is not configured"))
	}
	id, err := s.loader.deps.TransactionIDs.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next transaction id: %w", err)
	}
	return id, nil
}

func (s *Session) product(ctx context.Context, key dimension.Key) (*dimension.Product, error) {
	if p, ok := s.products[key]; ok {
		return p, nil
	}
	p, err := s.loader.deps.Catalog.Product(ctx, key)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewReferentialIntegrity(string(dimension.KindProduct), []dimension.Key{key}).
				WithDetail("fact", string(fact.KindSales))
		}
		return nil, err
	}
	s.products[key] = p
	return p, nil
}

func (s *Session) promotion(ctx context.Context, key dimension.Key) (*dimension.Promotion, error) {
	if p, ok := s.promotions[key]; ok {
		return p, nil
	}
	p, err := s.loader.deps.Catalog.Promotion(ctx, key)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewReferentialIntegrity(string(dimension.KindPromotion), []dimension.Key{key}).
				WithDetail("fact", string(fact.KindSales))
		}
		return nil, err
	}
	s.promotions[key] = p
	return p, nil
}
