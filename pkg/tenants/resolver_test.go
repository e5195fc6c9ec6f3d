package tenants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHeaderWinsVerbatim(t *testing.T) {
	// explicit header beats any host signal and is never transformed
	assert.Equal(t, "TenantX", Resolve("TenantX", "tenanta.example.com"))
	assert.Equal(t, "tenantx", Resolve("tenantx", "example.com"))
	assert.Equal(t, "TenantX", Resolve("TenantX", ""))
}

func TestResolveSubdomain(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"tenanta.example.com", "TenantA"},
		{"TENANTB.example.com", "TenantB"},
		{"tenanta.example.com:8080", "TenantA"},
		{"acme.example.com", "acme"},
		{"ACME.example.com", "acme"},
		{"tenant.example.com", "tenant"}, // no suffix after the prefix
		{"example.com", ""},
		{"localhost", ""},
		{"localhost:8080", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Resolve("", c.host), "host=%q", c.host)
	}
}

func TestResolveMalformedHosts(t *testing.T) {
	// must not panic and must return absent
	for _, host := range []string{":", ":::", "...", "..", "[::1]:8080", "::1", "."} {
		assert.NotPanics(t, func() { Resolve("", host) }, "host=%q", host)
	}
	assert.Equal(t, "", Resolve("", "[::1]:8080"))
	assert.Equal(t, "", Resolve("", ":"))
}

func TestResolveDeterministic(t *testing.T) {
	first := Resolve("", "tenanta.example.com")
	second := Resolve("", "tenanta.example.com")
	assert.Equal(t, first, second)
	assert.Equal(t, "TenantA", first)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", IDFrom(ctx))
	ctx = WithID(ctx, "TenantA")
	assert.Equal(t, "TenantA", IDFrom(ctx))
}
