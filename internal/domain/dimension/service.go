package dimension

import (
	"context"
	"fmt"
	"sort"

	"retaildw/internal/core/apperror"
)

// Catalog is the entry point for writing and resolving dimension rows.
type Catalog struct {
	repo Repository
}

// NewCatalog creates a new dimension catalog.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Upsert validates row and stores it, returning its surrogate key.
//
// Date rows get a key computed from the calendar date, so repeated loads of
// the same day return the same key without creating a second row. All other
// dimensions receive a fresh sequence key on every call.
func (c *Catalog) Upsert(ctx context.Context, row Row) (Key, error) {
	if row == nil {
		return 0, apperror.NewValidation("dimension row is required")
	}
	if d, ok := row.(DateDim); ok && d.Key == 0 && !d.FullDate.IsZero() {
		row = NewDateDim(d.FullDate)
	}
	if err := row.Validate(ctx); err != nil {
		return 0, err
	}

	key, err := c.repo.Insert(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", row.Kind(), err)
	}
	return key, nil
}

// Missing groups refs by dimension and returns, per dimension, the keys that
// do not resolve to a row. An empty map means every reference is valid.
func (c *Catalog) Missing(ctx context.Context, refs []Ref) (map[Kind][]Key, error) {
	byKind := make(map[Kind]map[Key]struct{})
	for _, ref := range refs {
		if !ref.Kind.Valid() {
			return nil, apperror.NewValidation("unknown dimension kind").WithDetail("kind", string(ref.Kind))
		}
		if byKind[ref.Kind] == nil {
			byKind[ref.Kind] = make(map[Key]struct{})
		}
		byKind[ref.Kind][ref.Key] = struct{}{}
	}

	missing := make(map[Kind][]Key)
	for _, kind := range Kinds {
		set, ok := byKind[kind]
		if !ok {
			continue
		}
		keys := make([]Key, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		absent, err := c.repo.MissingKeys(ctx, kind, keys)
		if err != nil {
			return nil, fmt.Errorf("check %s keys: %w", kind, err)
		}
		if len(absent) > 0 {
			missing[kind] = absent
		}
	}
	return missing, nil
}

// Product returns the product row holding the cost basis for profit.
func (c *Catalog) Product(ctx context.Context, key Key) (*Product, error) {
	p, err := c.repo.GetProduct(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", key, err)
	}
	return p, nil
}

// Promotion returns the promotion row with its discount and validity window.
func (c *Catalog) Promotion(ctx context.Context, key Key) (*Promotion, error) {
	p, err := c.repo.GetPromotion(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get promotion %d: %w", key, err)
	}
	return p, nil
}
