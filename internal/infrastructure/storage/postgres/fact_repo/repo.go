// Package fact_repo provides the PostgreSQL implementation of the fact store.
package fact_repo

import (
	"context"
	"fmt"

	"retaildw/internal/core/apperror"
	"retaildw/internal/domain/fact"
	"retaildw/internal/infrastructure/storage/postgres"
)

// Compile-time check that Repo implements fact.Repository.
var _ fact.Repository = (*Repo)(nil)

// columns are the COPY column lists per fact kind. Surrogate keys of
// fact_sales and fact_inventory_movement are filled by their sequences.
var columns = map[fact.Kind][]string{
	fact.KindSales:                 postgres.ExtractDBColumns[fact.SalesFact](),
	fact.KindPromotionEligibility:  postgres.ExtractDBColumns[fact.PromotionEligibility](),
	fact.KindInventoryMovement:     postgres.ExtractDBColumns[fact.InventoryMovement](),
	fact.KindInventorySnapshot:     postgres.ExtractDBColumns[fact.InventorySnapshot](),
	fact.KindInventoryBalance:      postgres.ExtractDBColumns[fact.InventoryBalance](),
	fact.KindInventoryDailyBalance: postgres.ExtractDBColumns[fact.InventoryDailyBalance](),
}

// Repo writes fact rows with the COPY protocol.
type Repo struct {
	batch *postgres.BatchInserter
}

// NewRepo creates a new fact repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{batch: postgres.NewBatchInserter(txm)}
}

// Append copies rows into the fact table of kind. It must run inside the
// load transaction; a foreign key violation surfaces as a referential
// integrity error.
func (r *Repo) Append(ctx context.Context, kind fact.Kind, rows []fact.Row) (int64, error) {
	cols, ok := columns[kind]
	if !ok {
		return 0, apperror.NewUnknownEntity(string(kind))
	}

	values := copyRows(cols, rows)
	n, err := r.batch.CopyFromSlice(ctx, kind.Table(), cols, values)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", kind.Table(), err)
	}
	return n, nil
}

func copyRows(cols []string, rows []fact.Row) [][]any {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = postgres.StructValues(row, cols)
	}
	return values
}
