// internal/users/memory.go
package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend implements Backend in memory for dev and tests. Filtering
// mirrors the postgres backend: tenant=="" means no predicate.
type MemoryBackend struct {
	mu   sync.RWMutex
	byID map[string]User
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{byID: map[string]User{}}
}

func (m *MemoryBackend) FindByID(ctx context.Context, tenant, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok || (tenant != "" && u.TenantID != tenant) {
		return nil, ErrNotFound
	}
	out := u
	return &out, nil
}

func (m *MemoryBackend) FindByName(ctx context.Context, tenant, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Username == username && (tenant == "" || u.TenantID == tenant) {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBackend) List(ctx context.Context, tenant string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, u := range m.byID {
		if tenant == "" || u.TenantID == tenant {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryBackend) Insert(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.byID[u.ID] = *u
	return nil
}

// SetActive flips a user's active flag; used by tests and ops tooling.
func (m *MemoryBackend) SetActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		now := time.Now().UTC()
		u.Active = active
		u.UpdatedAt = &now
		m.byID[id] = u
	}
}
