package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"retaildw/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// schemaTables lists every table in drop order (facts before dimensions).
var schemaTables = []string{
	"fact_sales",
	"fact_promotion_eligibility",
	"fact_inventory_movement",
	"fact_inventory_snapshot",
	"fact_inventory_balance",
	"fact_inventory_daily_balance",
	"dim_date",
	"dim_store",
	"dim_product",
	"dim_customer",
	"dim_payment_method",
	"dim_promotion",
	"dim_warehouse",
	"dw_sequences",
	"dw_load_runs",
}

// EnsureSchema creates the warehouse tables that do not exist yet.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	logger.Info(ctx, "schema ensured", "tables", len(schemaTables))
	return nil
}

// ResetSchema drops every warehouse table and recreates the schema empty.
func ResetSchema(ctx context.Context, pool *Pool) error {
	drop := "DROP TABLE IF EXISTS " + strings.Join(schemaTables, ", ") + " CASCADE"
	if _, err := pool.Exec(ctx, drop); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	logger.Warn(ctx, "schema dropped", "tables", len(schemaTables))
	return EnsureSchema(ctx, pool)
}
