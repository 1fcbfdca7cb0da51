// Package numerator allocates sequential business identifiers such as
// transaction ids (TX0001) from the dw_sequences table.
package numerator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses one UPSERT ... RETURNING per number.
	// Sequential without gaps; every call is a round trip.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers and hands them out from memory.
	// A range abandoned by a rolled back load leaves a gap.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// RangeOptions returns Cached options reserving size numbers per round trip,
// or Strict options when size is 1 or less.
func RangeOptions(size int64) *Options {
	if size <= 1 {
		return DefaultOptions()
	}
	return &Options{Strategy: StrategyCached, RangeSize: size}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for a call, usually the transaction
// carried by ctx.
type QuerierFunc func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides sequential numbering.
type Service struct {
	querier QuerierFunc

	// cacheMu protects ranges
	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// NewWithQuerierFunc creates a numerator that resolves its querier per call,
// so numbers are allocated inside the caller's transaction.
func NewWithQuerierFunc(fn QuerierFunc) *Service {
	return &Service{
		querier: fn,
		ranges:  make(map[string]*cachedRange),
	}
}

// Config holds numbering configuration. The prefix doubles as the
// dw_sequences key, so numbers never reset.
type Config struct {
	// Prefix added to all numbers (e.g., "TX")
	Prefix string

	// PadWidth is the minimum counter width (default 4)
	PadWidth int
}

// TransactionConfig numbers sales transactions as TX0001, TX0002, ...
func TransactionConfig() Config {
	return Config{Prefix: "TX", PadWidth: 4}
}

// GetNextNumber generates the next number for cfg.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, opts *Options) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	key := cfg.Prefix

	var num int64
	var err error
	switch opts.Strategy {
	case StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	default:
		num, err = s.getNextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return formatNumber(cfg, num), nil
}

// getNextStrict bumps the sequence by one and returns the new value.
func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO dw_sequences (sequence_key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (sequence_key) DO UPDATE SET current_val = dw_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached hands out the next value of the reserved range, reserving a
// new range when the current one is exhausted.
//
// current_val always holds the last reserved value, so after bumping it by
// size the range is (new - size, new].
func (s *Service) getNextCached(ctx context.Context, key string, opts *Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[key]
	if !exists {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.querier(ctx).QueryRow(ctx, `
			INSERT INTO dw_sequences (sequence_key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (sequence_key) DO UPDATE SET current_val = dw_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// Reset forgets every reserved range. Call it after the sequences table was
// rolled back or recreated.
func (s *Service) Reset() {
	s.cacheMu.Lock()
	s.ranges = make(map[string]*cachedRange)
	s.cacheMu.Unlock()
}

// formatNumber pads num to the configured width after the prefix.
func formatNumber(cfg Config, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 4
	}
	return fmt.Sprintf("%s%0*d", cfg.Prefix, padWidth, num)
}

// Sequence binds a Service to one config and strategy.
type Sequence struct {
	svc  *Service
	cfg  Config
	opts *Options
}

// Sequence returns a generator of numbers for cfg.
func (s *Service) Sequence(cfg Config, opts *Options) *Sequence {
	return &Sequence{svc: s, cfg: cfg, opts: opts}
}

// Next returns the next number of the sequence.
func (q *Sequence) Next(ctx context.Context) (string, error) {
	return q.svc.GetNextNumber(ctx, q.cfg, q.opts)
}

// Reset forgets the reserved ranges of the underlying service.
func (q *Sequence) Reset() {
	q.svc.Reset()
}
