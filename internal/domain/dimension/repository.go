package dimension

import (
	"context"
)

// Repository defines dimension data access.
type Repository interface {
	// Insert appends a row and returns its surrogate key. Date rows are
	// inserted idempotently under their derived key.
	Insert(ctx context.Context, row Row) (Key, error)

	// MissingKeys returns the subset of keys with no row in the dimension.
	MissingKeys(ctx context.Context, kind Kind, keys []Key) ([]Key, error)

	GetProduct(ctx context.Context, key Key) (*Product, error)
	GetPromotion(ctx context.Context, key Key) (*Promotion, error)
}
