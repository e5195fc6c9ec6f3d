// Package identity is the credential collaborator: account lookup,
// sign-in eligibility, and password verification. Lockout and password
// policy enforcement live with the deployment's account-policy service
// and are not modeled here.
package identity

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"tenauth/internal/users"
)

// ErrBadCredentials is returned when a password check fails.
var ErrBadCredentials = errors.New("invalid credentials")

// Manager locates accounts for the token subsystem. Lookups are unscoped
// on purpose: issuance must find the grant's subject regardless of the
// ambient request tenant, and the tenant embedded in claims is read from
// the record itself, never from the request.
type Manager struct {
	store users.Unscoped
}

func NewManager(store users.Unscoped) *Manager {
	return &Manager{store: store}
}

func (m *Manager) FindByID(ctx context.Context, id string) (*users.User, error) {
	return m.store.FindByID(ctx, id)
}

func (m *Manager) FindByName(ctx context.Context, username string) (*users.User, error) {
	return m.store.FindByName(ctx, username)
}

// CanSignIn reports whether the account is still permitted to
// authenticate.
func (m *Manager) CanSignIn(u *users.User) bool {
	return u != nil && u.Active
}

// VerifyPassword checks a plaintext password against the stored hash.
func (m *Manager) VerifyPassword(u *users.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for seeding and account creation.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// SeedFromEnv ingests initial user data. Performed outside tenant context,
// so the supplied tenant ids are persisted as-is (bootstrap path of the
// isolation gate's write rule).
// jsonSeed format (USER_SEED_JSON):
// [{"id":"u1","tenant_id":"TenantA","username":"usera@tenanta.com",
//   "email":"usera@tenanta.com","first_name":"User","last_name":"A",
//   "user_hierarchy":"manager","membership_level":"gold","password":"..."}]
func SeedFromEnv(ctx context.Context, store users.Unscoped, jsonSeed string) error {
	if jsonSeed == "" {
		return nil
	}
	var entries []struct {
		ID              string `json:"id"`
		TenantID        string `json:"tenant_id"`
		Username        string `json:"username"`
		Email           string `json:"email"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Hierarchy       string `json:"user_hierarchy"`
		MembershipLevel string `json:"membership_level"`
		Password        string `json:"password"`
	}
	if err := json.Unmarshal([]byte(jsonSeed), &entries); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := store.FindByName(ctx, e.Username); err == nil {
			continue
		}
		hash := ""
		if e.Password != "" {
			var err error
			if hash, err = HashPassword(e.Password); err != nil {
				return err
			}
		}
		u := &users.User{
			ID: e.ID, TenantID: e.TenantID, Username: e.Username, Email: e.Email,
			FirstName: e.FirstName, LastName: e.LastName,
			Hierarchy: e.Hierarchy, MembershipLevel: e.MembershipLevel,
			PasswordHash: hash, Active: true,
		}
		if err := store.Insert(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
