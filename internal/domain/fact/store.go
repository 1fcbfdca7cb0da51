package fact

import (
	"context"
	"fmt"

	"retaildw/internal/core/apperror"
	"retaildw/internal/domain/dimension"
)

// KeyChecker resolves which referenced dimension keys do not exist.
// *dimension.Catalog satisfies it.
type KeyChecker interface {
	Missing(ctx context.Context, refs []dimension.Ref) (map[dimension.Kind][]dimension.Key, error)
}

// Store appends fact rows after checking their references against the catalog.
type Store struct {
	repo    Repository
	catalog KeyChecker
}

// NewStore creates a new fact store.
func NewStore(repo Repository, catalog KeyChecker) *Store {
	return &Store{repo: repo, catalog: catalog}
}

// Append validates rows and writes them as one batch.
//
// Every row must be of the declared kind and pass its own checks. All
// dimension references of the batch are resolved together; if any key is
// missing the whole batch is rejected with a referential integrity error
// naming the first offending dimension and nothing is written.
func (s *Store) Append(ctx context.Context, kind Kind, rows []Row) (int64, error) {
	if !kind.Valid() {
		return 0, apperror.NewUnknownEntity(string(kind))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var refs []dimension.Ref
	for i, row := range rows {
		if row == nil {
			return 0, apperror.NewValidation("fact row is required").WithDetail("index", i)
		}
		if row.FactKind() != kind {
			return 0, apperror.NewValidation("fact row kind mismatch").
				WithDetail("index", i).
				WithDetail("expected", string(kind)).
				WithDetail("actual", string(row.FactKind()))
		}
		if err := row.Validate(); err != nil {
			return 0, err
		}
		refs = append(refs, row.References()...)
	}

	missing, err := s.catalog.Missing(ctx, refs)
	if err != nil {
		return 0, fmt.Errorf("resolve %s references: %w", kind, err)
	}
	for _, dim := range dimension.Kinds {
		if keys, ok := missing[dim]; ok {
			return 0, apperror.NewReferentialIntegrity(string(dim), keys).WithDetail("fact", string(kind))
		}
	}

	n, err := s.repo.Append(ctx, kind, rows)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", kind, err)
	}
	return n, nil
}
