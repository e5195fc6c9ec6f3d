package tenants

import "time"

// Tenant represents an isolated customer / organization boundary.
// Rows are never tenant-scoped themselves: the table is the root of the
// partitioning scheme and is only ever read through the unscoped Store.
type Tenant struct {
	ID        string // stable identifier, e.g. generated uuid or canonical code
	Name      string
	Domain    string // unique, used for resolution/display
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}
