// Package dimension_repo provides the PostgreSQL implementation of the dimension catalog.
package dimension_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retaildw/internal/core/apperror"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/infrastructure/storage/postgres"
)

// Compile-time check that Repo implements dimension.Repository.
var _ dimension.Repository = (*Repo)(nil)

// insertColumns are the INSERT column lists per kind. Dates carry their
// derived key; every other surrogate key comes from the table's sequence.
var insertColumns = map[dimension.Kind][]string{
	dimension.KindDate:          postgres.ExtractDBColumns[dimension.DateDim](),
	dimension.KindStore:         postgres.ExtractDBColumns[dimension.Store](keyColumn(dimension.KindStore)),
	dimension.KindProduct:       postgres.ExtractDBColumns[dimension.Product](keyColumn(dimension.KindProduct)),
	dimension.KindCustomer:      postgres.ExtractDBColumns[dimension.Customer](keyColumn(dimension.KindCustomer)),
	dimension.KindPaymentMethod: postgres.ExtractDBColumns[dimension.PaymentMethod](keyColumn(dimension.KindPaymentMethod)),
	dimension.KindPromotion:     postgres.ExtractDBColumns[dimension.Promotion](keyColumn(dimension.KindPromotion)),
	dimension.KindWarehouse:     postgres.ExtractDBColumns[dimension.Warehouse](keyColumn(dimension.KindWarehouse)),
}

// Repo stores dimension rows in the dim_* tables.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new dimension repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// keyColumn returns the surrogate key column of kind ("store" -> "store_key").
func keyColumn(kind dimension.Kind) string {
	return string(kind) + "_key"
}

// Insert appends row. Date rows keep their derived key and are skipped when
// the day already exists; every other row receives a new sequence key.
func (r *Repo) Insert(ctx context.Context, row dimension.Row) (dimension.Key, error) {
	q, err := insertQuery(row)
	if err != nil {
		return 0, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if d, ok := row.(dimension.DateDim); ok {
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return 0, postgres.MapError(err)
		}
		return d.Key, nil
	}

	var key dimension.Key
	if err := querier.QueryRow(ctx, sql, args...).Scan(&key); err != nil {
		return 0, postgres.MapError(err)
	}
	return key, nil
}

// insertQuery builds the INSERT for row from its "db" tags, in field order.
func insertQuery(row dimension.Row) (squirrel.InsertBuilder, error) {
	kind := row.Kind()
	cols, ok := insertColumns[kind]
	if !ok {
		return squirrel.InsertBuilder{}, apperror.NewUnknownEntity(kind.Table())
	}

	q := Builder().Insert(kind.Table()).
		Columns(cols...).
		Values(postgres.StructValues(row, cols)...)
	if kind == dimension.KindDate {
		return q.Suffix("ON CONFLICT (date_key) DO NOTHING"), nil
	}
	return q.Suffix("RETURNING " + keyColumn(kind)), nil
}

// MissingKeys returns the keys, in input order, with no row in the dimension.
func (r *Repo) MissingKeys(ctx context.Context, kind dimension.Kind, keys []dimension.Key) ([]dimension.Key, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	sql, args, err := existingKeysQuery(kind, keys).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build key lookup: %w", err)
	}

	var found []dimension.Key
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &found, sql, args...); err != nil {
		return nil, postgres.MapError(err)
	}

	present := make(map[dimension.Key]struct{}, len(found))
	for _, k := range found {
		present[k] = struct{}{}
	}
	var missing []dimension.Key
	for _, k := range keys {
		if _, ok := present[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func existingKeysQuery(kind dimension.Kind, keys []dimension.Key) squirrel.SelectBuilder {
	col := keyColumn(kind)
	return Builder().
		Select(col).
		From(kind.Table()).
		Where(squirrel.Eq{col: keys})
}

// GetProduct loads one product row.
func (r *Repo) GetProduct(ctx context.Context, key dimension.Key) (*dimension.Product, error) {
	p := new(dimension.Product)
	if err := r.get(ctx, dimension.KindProduct, key, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPromotion loads one promotion row.
func (r *Repo) GetPromotion(ctx context.Context, key dimension.Key) (*dimension.Promotion, error) {
	p := new(dimension.Promotion)
	if err := r.get(ctx, dimension.KindPromotion, key, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) get(ctx context.Context, kind dimension.Kind, key dimension.Key, dst any) error {
	sql, args, err := Builder().
		Select("*").
		From(kind.Table()).
		Where(squirrel.Eq{keyColumn(kind): key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(kind.Table(), int64(key))
		}
		return postgres.MapError(err)
	}
	return nil
}
