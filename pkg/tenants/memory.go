// pkg/tenants/memory.go
package tenants

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	mu   sync.RWMutex
	byID map[string]Tenant
}

// NewMemoryStore returns an in-memory Store for dev and tests.
func NewMemoryStore() Store {
	return &memStore{byID: map[string]Tenant{}}
}

func (m *memStore) Create(ctx context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Domain == t.Domain {
			return ErrDomainTaken
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.byID[t.ID] = *t
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.byID[id]; ok {
		return &t, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.byID {
		if t.Domain == domain {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(ctx context.Context) ([]Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Deactivate flips a tenant inactive; used by tests and ops tooling.
func (m *memStore) Deactivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		now := time.Now().UTC()
		t.Active = false
		t.UpdatedAt = &now
		m.byID[id] = t
	}
}
