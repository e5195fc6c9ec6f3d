// Package isolation is the single enforcement point for tenant scoping.
//
// Every persisted kind that must stay inside its owning tenant's partition
// carries the Entity capability and is registered here at startup. Store
// implementations consult the registry and route all reads and writes for
// registered kinds through the scoped surface; the unscoped surface exists
// only for explicitly marked administrative and token-subsystem paths.
package isolation

import (
	"context"
	"sort"
	"sync"

	"tenauth/pkg/tenants"
)

// Entity is the capability carried by every tenant-scoped record.
type Entity interface {
	Tenant() string
	SetTenant(string)
}

var (
	mu       sync.RWMutex
	registry = map[string]struct{}{}
)

// Register marks a persisted kind (table name) as tenant-scoped. Called
// once per kind during startup wiring; there is no runtime reflection —
// the set of scoped kinds is static for the life of the process.
func Register(kind string) {
	mu.Lock()
	defer mu.Unlock()
	registry[kind] = struct{}{}
}

// Scoped reports whether a kind was registered as tenant-scoped.
func Scoped(kind string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// Kinds returns the registered kinds, sorted; useful for startup logging
// and audits.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stamp overwrites the entity's tenant with the context tenant immediately
// before persisting, regardless of what the caller set. When the context
// holds no tenant (system/bootstrap operations) the caller's value is kept.
func Stamp(ctx context.Context, e Entity) {
	if id := tenants.IDFrom(ctx); id != "" {
		e.SetTenant(id)
	}
}

// Visible reports whether a row may be returned under the context tenant.
// An unresolved context sees nothing through the scoped surface: reads
// fail closed, and a cross-tenant row is indistinguishable from an absent
// one.
func Visible(ctx context.Context, e Entity) bool {
	id := tenants.IDFrom(ctx)
	return id != "" && e.Tenant() == id
}
