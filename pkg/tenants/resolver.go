package tenants

import (
	"context"
	"strings"
	"unicode"
)

// HeaderTenantID is the explicit tenant signal clients may set.
const HeaderTenantID = "X-Tenant-Id"

type ctxTenantKey struct{}

// WithID returns a context carrying the resolved tenant identifier.
// The value is set once at request entry and treated as immutable.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTenantKey{}, id)
}

// IDFrom returns the tenant identifier resolved for this request,
// or "" when the request carries no tenant context.
func IDFrom(ctx context.Context) string {
	if v := ctx.Value(ctxTenantKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Resolve derives a tenant identifier from the request's explicit header
// value or, failing that, the leftmost subdomain label of the host.
// Pure string logic: no storage access, deterministic, safe on malformed
// hosts. Returns "" when neither signal is present.
//
// Header values are returned verbatim (the header is a machine contract).
// Subdomain candidates are normalized: lower-cased, and "tenant<suffix>"
// maps to "Tenant<Suffix>" (tenanta.example.com -> TenantA).
func Resolve(header, host string) string {
	if header != "" {
		return header
	}
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i+1:], "]") {
		host = host[:i]
	}
	host = strings.Trim(host, ".")
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		// bare domain+TLD (or a single label): no subdomain signal
		return ""
	}
	return normalizeSubdomain(parts[0])
}

// normalizeSubdomain maps a host label to a tenant identifier.
func normalizeSubdomain(label string) string {
	label = strings.ToLower(label)
	if suffix, ok := strings.CutPrefix(label, "tenant"); ok && suffix != "" {
		r := []rune(suffix)
		r[0] = unicode.ToUpper(r[0])
		return "Tenant" + string(r)
	}
	return label
}
