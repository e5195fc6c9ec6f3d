// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed tenant store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the tenant table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tenants (
  id text PRIMARY KEY,
  name text NOT NULL,
  domain text NOT NULL,
  active boolean NOT NULL DEFAULT true,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz
);
CREATE UNIQUE INDEX IF NOT EXISTS tenants_domain_idx ON tenants(domain);
`)
	return err
}

// SeedFromEnv ingests initial tenant data.
// jsonSeed format (TENANT_SEED_JSON):
// [{"id":"TenantA","name":"Tenant A Company","domain":"tenanta.example.com"}]
func SeedFromEnv(ctx context.Context, store Store, jsonSeed string) error {
	if jsonSeed == "" {
		return nil
	}
	var entries []struct {
		ID, Name, Domain string
	}
	if err := json.Unmarshal([]byte(jsonSeed), &entries); err != nil {
		return err
	}
	for _, e := range entries {
		t := &Tenant{ID: e.ID, Name: e.Name, Domain: e.Domain, Active: true}
		if err := store.Create(ctx, t); err != nil && !errors.Is(err, ErrDomainTaken) {
			return err
		}
	}
	return nil
}

func (s *pgStore) Create(ctx context.Context, t *Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.dbPool.Exec(ctx,
		`INSERT INTO tenants(id,name,domain,active,created_at) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.Domain, t.Active, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDomainTaken
		}
		return err
	}
	return nil
}

func (s *pgStore) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return s.get(ctx, `SELECT id,name,domain,active,created_at,updated_at FROM tenants WHERE id=$1`, id)
}

func (s *pgStore) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	return s.get(ctx, `SELECT id,name,domain,active,created_at,updated_at FROM tenants WHERE domain=$1`, domain)
}

func (s *pgStore) get(ctx context.Context, sql, arg string) (*Tenant, error) {
	row := s.dbPool.QueryRow(ctx, sql, arg)
	var t Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *pgStore) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.dbPool.Query(ctx, `SELECT id,name,domain,active,created_at,updated_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Domain, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
