package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retaildw/internal/core/apperror"
)

func TestMapError_ForeignKey(t *testing.T) {
	err := MapError(fmt.Errorf("copy: %w", &pgconn.PgError{
		Code:           sqlStateForeignKeyViolation,
		TableName:      "fact_sales",
		ConstraintName: "fact_sales_product_key_fkey",
		Detail:         `Key (product_key)=(999) is not present in table "dim_product".`,
	}))

	require.True(t, apperror.IsReferentialIntegrity(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "product", appErr.Details["dimension"])
	assert.Equal(t, []int64{999}, appErr.Details["keys"])
	assert.Equal(t, "sales", appErr.Details["fact"])
	assert.Equal(t, "product_key", appErr.Details["column"])
}

func TestMapError_ForeignKeyWithoutDetail(t *testing.T) {
	err := MapError(&pgconn.PgError{
		Code:           sqlStateForeignKeyViolation,
		TableName:      "fact_inventory_movement",
		ConstraintName: "fact_inventory_movement_warehouse_key_fkey",
	})
	assert.True(t, apperror.IsReferentialIntegrity(err))
}

func TestMapError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"statement timeout", &pgconn.PgError{Code: sqlStateQueryCanceled}, apperror.CodeTimeout},
		{"deadline", context.DeadlineExceeded, apperror.CodeTimeout},
		{"check", &pgconn.PgError{Code: sqlStateCheckViolation, ConstraintName: "fact_sales_quantity_check"}, apperror.CodeValidation},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, apperror.CodeDatabase},
		{"plain error", errors.New("connection reset"), apperror.CodeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperror.HasCode(MapError(tt.err), tt.code))
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	appErr := apperror.NewInvalidRange("bad")
	assert.Same(t, appErr, MapError(appErr))
}
