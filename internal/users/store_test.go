package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenauth/pkg/tenants"
)

func seedTwoTenants(t *testing.T) (*Store, *User, *User) {
	t.Helper()
	store := NewStore(NewMemoryBackend())
	userA := &User{ID: "user-a-id", TenantID: "TenantA", Username: "userA@tenanta.com", Email: "userA@tenanta.com", FirstName: "User", LastName: "A", Active: true}
	userB := &User{ID: "user-b-id", TenantID: "TenantB", Username: "userB@tenantb.com", Email: "userB@tenantb.com", FirstName: "User", LastName: "B", Active: true}
	// bootstrap inserts outside tenant context keep the supplied tenant ids
	require.NoError(t, store.Create(context.Background(), userA))
	require.NoError(t, store.Create(context.Background(), userB))
	return store, userA, userB
}

func TestScopedReadsNeverCrossTenants(t *testing.T) {
	store, userA, userB := seedTwoTenants(t)
	ctxA := tenants.WithID(context.Background(), "TenantA")
	ctxB := tenants.WithID(context.Background(), "TenantB")

	got, err := store.FindByID(ctxA, userA.ID)
	require.NoError(t, err)
	assert.Equal(t, "TenantA", got.TenantID)

	// another tenant's row is indistinguishable from an absent one
	_, err = store.FindByID(ctxA, userB.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindByName(ctxA, userB.Username)
	assert.ErrorIs(t, err, ErrNotFound)

	listA, err := store.List(ctxA)
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, userA.ID, listA[0].ID)

	listB, err := store.List(ctxB)
	require.NoError(t, err)
	require.Len(t, listB, 1)
	assert.Equal(t, userB.ID, listB[0].ID)
}

func TestScopedReadsFailClosedWithoutTenant(t *testing.T) {
	store, userA, _ := seedTwoTenants(t)
	_, err := store.FindByID(context.Background(), userA.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateStampsContextTenant(t *testing.T) {
	store, _, _ := seedTwoTenants(t)
	ctxB := tenants.WithID(context.Background(), "TenantB")

	// caller tries to smuggle a different tenant; the gate overwrites it
	u := &User{TenantID: "TenantA", Username: "new@tenantb.com", Email: "new@tenantb.com", Active: true}
	require.NoError(t, store.Create(ctxB, u))
	assert.Equal(t, "TenantB", u.TenantID)

	got, err := store.Unscoped().FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "TenantB", got.TenantID)
}

func TestUnscopedSeesAllTenants(t *testing.T) {
	store, userA, userB := seedTwoTenants(t)
	all, err := store.Unscoped().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	gotB, err := store.Unscoped().FindByID(context.Background(), userB.ID)
	require.NoError(t, err)
	assert.Equal(t, "TenantB", gotB.TenantID)
	gotA, err := store.Unscoped().FindByName(context.Background(), userA.Username)
	require.NoError(t, err)
	assert.Equal(t, "TenantA", gotA.TenantID)
}
