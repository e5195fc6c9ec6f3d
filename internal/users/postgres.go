// internal/users/postgres.go
package users

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenauth/pkg/db"
)

const userColumns = `id,tenant_id,username,email,first_name,last_name,user_hierarchy,membership_level,password_hash,active,created_at,updated_at`

// pgBackend implements Backend on PostgreSQL. The tenant predicate is
// attached in exactly one place (scope) so it cannot drift between
// queries.
type pgBackend struct {
	dbPool *pgxpool.Pool
}

func NewPostgresBackend(dbPool *pgxpool.Pool) Backend {
	return &pgBackend{dbPool: dbPool}
}

// EnsureSchema creates the user table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id text PRIMARY KEY,
  tenant_id text NOT NULL REFERENCES tenants(id),
  username text NOT NULL UNIQUE,
  email text NOT NULL UNIQUE,
  first_name text NOT NULL DEFAULT '',
  last_name text NOT NULL DEFAULT '',
  user_hierarchy text NOT NULL DEFAULT '',
  membership_level text NOT NULL DEFAULT '',
  password_hash text NOT NULL DEFAULT '',
  active boolean NOT NULL DEFAULT true,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz
);
CREATE INDEX IF NOT EXISTS users_tenant_idx ON users(tenant_id);
`)
	return err
}

// scope appends the tenant equality predicate when a filter is requested.
// All reads below funnel through here.
func scope(sql string, tenant string, args []any) (string, []any) {
	if tenant == "" {
		return sql, args
	}
	return sql + " AND tenant_id = $" + strconv.Itoa(len(args)+1), append(args, tenant)
}

func (b *pgBackend) FindByID(ctx context.Context, tenant, id string) (*User, error) {
	sql, args := scope(`SELECT `+userColumns+` FROM users WHERE id = $1`, tenant, []any{id})
	return b.one(ctx, sql, args)
}

func (b *pgBackend) FindByName(ctx context.Context, tenant, username string) (*User, error) {
	sql, args := scope(`SELECT `+userColumns+` FROM users WHERE username = $1`, tenant, []any{username})
	return b.one(ctx, sql, args)
}

func (b *pgBackend) one(ctx context.Context, sql string, args []any) (*User, error) {
	row := b.dbPool.QueryRow(ctx, sql, args...)
	var u User
	if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Hierarchy, &u.MembershipLevel, &u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (b *pgBackend) List(ctx context.Context, tenant string) ([]User, error) {
	sql, args := scope(`SELECT `+userColumns+` FROM users WHERE true`, tenant, nil)
	rows, err := b.dbPool.Query(ctx, sql+" ORDER BY created_at", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.Hierarchy, &u.MembershipLevel, &u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Insert persists a new user inside a tenant-pinned transaction so the
// write either fully commits with its stamped tenant id or not at all.
func (b *pgBackend) Insert(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	tx, err := db.BeginTxWithTenant(ctx, b.dbPool, u.TenantID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO users(`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.ID, u.TenantID, u.Username, u.Email, u.FirstName, u.LastName,
		u.Hierarchy, u.MembershipLevel, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
