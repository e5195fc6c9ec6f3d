package oauth

import (
	"context"

	"tenauth/internal/users"
	"tenauth/pkg/tenants"
)

// Token destinations (audiences a claim is emitted into).
const (
	DestAccessToken = "access_token"
	DestIDToken     = "id_token"
)

// Claim names used by the issuer.
const (
	ClaimSubject    = "sub"
	ClaimName       = "name"
	ClaimEmail      = "email"
	ClaimTenant     = "tenant_id"
	ClaimHierarchy  = "user_hierarchy"
	ClaimMembership = "membership_level"
	ClaimScope      = "scope"
	ClaimGrantType  = "gty"
)

// Claim is a named token attribute plus the destinations it is emitted to.
type Claim struct {
	Value        any
	Destinations []string
}

// ClaimSet maps claim name to value and destinations.
type ClaimSet map[string]Claim

// Set adds a claim with its default destinations: the enumerated
// identity claims go to both tokens, everything else is access-only.
func (cs ClaimSet) Set(name string, value any) {
	cs[name] = Claim{Value: value, Destinations: destinations(name)}
}

func destinations(name string) []string {
	switch name {
	case ClaimSubject, ClaimName, ClaimEmail, ClaimTenant, ClaimHierarchy, ClaimMembership:
		return []string{DestAccessToken, DestIDToken}
	default:
		return []string{DestAccessToken}
	}
}

// ForDestination returns the claims emitted into the given token.
func (cs ClaimSet) ForDestination(dest string) map[string]any {
	out := map[string]any{}
	for name, c := range cs {
		for _, d := range c.Destinations {
			if d == dest {
				out[name] = c.Value
				break
			}
		}
	}
	return out
}

// UserClaims is the shared claim-selection routine used by both token
// issuance and userinfo. Tenant, hierarchy, and membership come from the
// persisted record — never from request headers — so a caller cannot
// forge cross-tenant claims. The optional profile attributes are included
// only when non-empty.
func UserClaims(u *users.User) ClaimSet {
	cs := ClaimSet{}
	cs.Set(ClaimSubject, u.ID)
	cs.Set(ClaimName, u.Username)
	cs.Set(ClaimEmail, u.Email)
	cs.Set(ClaimTenant, u.TenantID)
	if u.Hierarchy != "" {
		cs.Set(ClaimHierarchy, u.Hierarchy)
	}
	if u.MembershipLevel != "" {
		cs.Set(ClaimMembership, u.MembershipLevel)
	}
	return cs
}

// ClientClaims builds the claim set for a client-credentials exchange.
// Subject and name derive from the registered client; the tenant claim is
// included only when the issuing request's context resolved a tenant
// (there is no end user to source it from).
func ClientClaims(ctx context.Context, c Client) ClaimSet {
	cs := ClaimSet{}
	cs.Set(ClaimSubject, c.ID)
	cs.Set(ClaimName, c.DisplayName)
	if id := tenants.IDFrom(ctx); id != "" {
		cs.Set(ClaimTenant, id)
	}
	return cs
}
