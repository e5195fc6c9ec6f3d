package tenants

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned for lookups that match no tenant.
	ErrNotFound = errors.New("tenant not found")
	// ErrDomainTaken is returned by Create when the domain is already owned.
	ErrDomainTaken = errors.New("tenant domain already exists")
)

// Store is the persistence surface for tenant records. All reads are
// unscoped by design: the tenant table is not itself tenant-scoped and
// this is the only component allowed to touch it without isolation
// filtering.
type Store interface {
	// Create persists a new tenant. Domain uniqueness is enforced here;
	// a collision yields ErrDomainTaken with no partial write.
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}
