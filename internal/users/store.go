package users

import (
	"context"
	"errors"

	"tenauth/pkg/isolation"
	"tenauth/pkg/tenants"
)

// Kind is the registered tenant-scoped kind for users.
const Kind = "users"

// ErrNotFound covers both genuinely absent rows and rows owned by another
// tenant. Callers cannot tell the two apart; that is the point.
var ErrNotFound = errors.New("user not found")

// Backend is the raw persistence surface. Every read takes an explicit
// tenant filter; tenant=="" means no predicate and is reachable only
// through the Unscoped accessor below.
type Backend interface {
	FindByID(ctx context.Context, tenant, id string) (*User, error)
	FindByName(ctx context.Context, tenant, username string) (*User, error)
	List(ctx context.Context, tenant string) ([]User, error)
	Insert(ctx context.Context, u *User) error
}

// Store is the normal data-access surface for users. It is the isolation
// gate's choke point: reads conjoin the context tenant unconditionally,
// and inserts stamp the context tenant over whatever the caller set.
// There is no way to omit the predicate through this type.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	if !isolation.Scoped(Kind) {
		isolation.Register(Kind)
	}
	return &Store{backend: backend}
}

// FindByID returns the user only when it belongs to the context tenant.
// An unresolved context sees nothing.
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	tenant := tenants.IDFrom(ctx)
	if tenant == "" {
		return nil, ErrNotFound
	}
	return s.backend.FindByID(ctx, tenant, id)
}

func (s *Store) FindByName(ctx context.Context, username string) (*User, error) {
	tenant := tenants.IDFrom(ctx)
	if tenant == "" {
		return nil, ErrNotFound
	}
	return s.backend.FindByName(ctx, tenant, username)
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	tenant := tenants.IDFrom(ctx)
	if tenant == "" {
		return nil, nil
	}
	return s.backend.List(ctx, tenant)
}

// Create stamps the context tenant onto the new user before persisting.
// Outside tenant context (bootstrap/seeding) the caller-supplied value
// is persisted as-is.
func (s *Store) Create(ctx context.Context, u *User) error {
	isolation.Stamp(ctx, u)
	return s.backend.Insert(ctx, u)
}

// Unscoped returns the cross-tenant surface. Use is restricted to the
// administrative API and the token subsystem, which must locate users
// regardless of the ambient request tenant.
func (s *Store) Unscoped() Unscoped {
	return Unscoped{backend: s.backend}
}

// Unscoped reads and writes users without tenant filtering. A distinct
// type so call sites are grep-able.
type Unscoped struct {
	backend Backend
}

func (u Unscoped) FindByID(ctx context.Context, id string) (*User, error) {
	return u.backend.FindByID(ctx, "", id)
}

func (u Unscoped) FindByName(ctx context.Context, username string) (*User, error) {
	return u.backend.FindByName(ctx, "", username)
}

func (u Unscoped) List(ctx context.Context) ([]User, error) {
	return u.backend.List(ctx, "")
}

func (u Unscoped) Insert(ctx context.Context, usr *User) error {
	return u.backend.Insert(ctx, usr)
}
