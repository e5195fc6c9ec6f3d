package tenants

import (
	"context"
	"errors"
)

// Validator confirms that a resolved tenant identifier names an existing,
// active tenant. It holds no cache: every call re-reads current state, so
// a deactivated tenant is rejected on the next request.
type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// Validate fails closed: an empty identifier is invalid, an unknown or
// inactive tenant is invalid. The lookup is unscoped by construction
// (the tenant table has no tenant column to filter on). Only storage
// failures surface as errors.
func (v *Validator) Validate(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}
	t, err := v.store.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return t.Active, nil
}
