package users

import "time"

// User is an application account. It is the paradigm tenant-scoped
// entity: its TenantID is stamped at insert time and every read through
// the scoped store carries the tenant predicate.
type User struct {
	ID              string
	TenantID        string
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Hierarchy       string // organizational tier, e.g. "manager"
	MembershipLevel string // e.g. "gold"
	PasswordHash    string // bcrypt; managed by the identity collaborator
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Tenant and SetTenant implement isolation.Entity.
func (u *User) Tenant() string       { return u.TenantID }
func (u *User) SetTenant(id string)  { u.TenantID = id }
