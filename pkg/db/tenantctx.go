package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BeginTxWithTenant starts a transaction pinned to a tenant by setting
// app.tenant_id for the transaction's lifetime, so database-side RLS
// policies (when enabled) see the same tenant the application resolved.
// Call tx.Rollback(ctx) on error paths; Commit on success.
func BeginTxWithTenant(ctx context.Context, pool *pgxpool.Pool, tenantID string) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}
