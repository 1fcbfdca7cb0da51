package postgres

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"retaildw/internal/core/apperror"
)

// SQLSTATE codes the warehouse classifies.
const (
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
	sqlStateQueryCanceled       = "57014"
)

// fkDetail matches `Key (product_key)=(999) is not present in table "dim_product".`
var fkDetail = regexp.MustCompile(`Key \((\w+)\)=\(([^)]*)\) is not present in table "(?:\w+\.)?dim_(\w+)"`)

// MapError converts a database error into an AppError. Errors that already
// are AppErrors and nil pass through unchanged.
func MapError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTimeout(err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewDatabase(err)
	}

	switch pgErr.Code {
	case sqlStateForeignKeyViolation:
		return foreignKeyError(pgErr)
	case sqlStateCheckViolation:
		return apperror.NewValidation("row violates constraint "+pgErr.ConstraintName).
			WithDetail("table", pgErr.TableName).
			WithCause(err)
	case sqlStateQueryCanceled:
		return apperror.NewTimeout(err)
	default:
		return apperror.NewDatabase(err)
	}
}

func foreignKeyError(pgErr *pgconn.PgError) error {
	m := fkDetail.FindStringSubmatch(pgErr.Detail)
	if m == nil {
		return apperror.NewReferentialIntegrity(pgErr.ConstraintName, []int64{}).
			WithDetail("fact", strings.TrimPrefix(pgErr.TableName, "fact_")).
			WithCause(pgErr)
	}

	var keys []int64
	if key, err := strconv.ParseInt(m[2], 10, 64); err == nil {
		keys = []int64{key}
	}
	return apperror.NewReferentialIntegrity(m[3], keys).
		WithDetail("fact", strings.TrimPrefix(pgErr.TableName, "fact_")).
		WithDetail("column", m[1]).
		WithCause(pgErr)
}
