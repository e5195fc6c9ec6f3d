package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenauth/internal/identity"
	"tenauth/internal/users"
	"tenauth/pkg/config"
	"tenauth/pkg/middleware"
	"tenauth/pkg/tenants"
)

type testEnv struct {
	cfg     config.Config
	svc     *Service
	signer  *Signer
	router  http.Handler
	backend *users.MemoryBackend
	store   *users.Store
	grants  GrantStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		Env:             "test",
		Issuer:          "http://auth.test",
		Audience:        "tenauth-api",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
		AuthCodeTTL:     5 * time.Minute,
	}
	log := zap.NewNop().Sugar()

	signer, err := NewSigner(cfg)
	require.NoError(t, err)

	backend := users.NewMemoryBackend()
	store := users.NewStore(backend)
	ident := identity.NewManager(store.Unscoped())
	clients := NewClientRegistry(Client{ID: "web-app", Secret: "s3cr3t", DisplayName: "Web App"})
	grants := NewMemoryGrantStore()
	svc := NewService(log, cfg, signer, clients, grants, ident)

	tstore := tenants.NewMemoryStore()
	require.NoError(t, tstore.Create(context.Background(), &tenants.Tenant{ID: "TenantA", Name: "Tenant A Company", Domain: "tenanta.example.com", Active: true}))
	require.NoError(t, tstore.Create(context.Background(), &tenants.Tenant{ID: "TenantB", Name: "Tenant B Company", Domain: "tenantb.example.com", Active: true}))

	r := chi.NewRouter()
	r.Use(middleware.TenantValidation(tenants.NewValidator(tstore), log))
	svc.Routes(r)
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.BearerAuth(cfg, signer.PublicKeys()))
		gr.Get("/connect/userinfo", svc.HandleUserinfo)
	})

	return &testEnv{cfg: cfg, svc: svc, signer: signer, router: r, backend: backend, store: store, grants: grants}
}

func (e *testEnv) seedUser(t *testing.T, u *users.User) {
	t.Helper()
	require.NoError(t, e.store.Unscoped().Insert(context.Background(), u))
}

func (e *testEnv) postToken(t *testing.T, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) parseToken(t *testing.T, raw string) jwt.Token {
	t.Helper()
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKeySet(e.signer.PublicKeys()),
		jwt.WithIssuer(e.cfg.Issuer),
		jwt.WithValidate(true),
	)
	require.NoError(t, err)
	return tok
}

func decodeTokenResponse(t *testing.T, rr *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeOAuthError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestClientCredentialsGrant(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postToken(t, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web-app"},
		"client_secret": {"s3cr3t"},
		"scope":         {"api"},
	}, nil)

	resp := decodeTokenResponse(t, rr)
	tok := env.parseToken(t, resp.AccessToken)
	assert.Equal(t, "web-app", tok.Subject())
	_, ok := tok.Get(ClaimTenant)
	assert.False(t, ok, "no tenant resolved for the request, so no tenant claim")
	assert.Empty(t, resp.RefreshToken, "client credentials yields no refresh token")
}

func TestClientCredentialsIncludesResolvedTenant(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postToken(t, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web-app"},
		"client_secret": {"s3cr3t"},
	}, http.Header{tenants.HeaderTenantID: {"TenantA"}})

	resp := decodeTokenResponse(t, rr)
	tok := env.parseToken(t, resp.AccessToken)
	tenant, ok := tok.Get(ClaimTenant)
	require.True(t, ok)
	assert.Equal(t, "TenantA", tenant)
}

func TestClientCredentialsBadSecret(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postToken(t, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web-app"},
		"client_secret": {"wrong"},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, ErrInvalidClient, decodeOAuthError(t, rr)["error"])
}

func TestAuthorizationCodeGrant(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, &users.User{
		ID: "u1", TenantID: "TenantA", Username: "usera@tenanta.com", Email: "usera@tenanta.com",
		FirstName: "User", LastName: "A", Hierarchy: "manager", MembershipLevel: "gold", Active: true,
	})
	code, err := env.svc.IssueAuthorizationCode(context.Background(), "u1", "web-app", "openid profile")
	require.NoError(t, err)

	// the request context resolves TenantB, but the token's tenant claim
	// must come from the user record (TenantA)
	rr := env.postToken(t, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}, http.Header{tenants.HeaderTenantID: {"TenantB"}})

	resp := decodeTokenResponse(t, rr)
	require.NotEmpty(t, resp.IDToken, "openid scope was granted")
	require.NotEmpty(t, resp.RefreshToken)

	tok := env.parseToken(t, resp.AccessToken)
	tenant, ok := tok.Get(ClaimTenant)
	require.True(t, ok)
	assert.Equal(t, "TenantA", tenant)
	hierarchy, _ := tok.Get(ClaimHierarchy)
	assert.Equal(t, "manager", hierarchy)
	membership, _ := tok.Get(ClaimMembership)
	assert.Equal(t, "gold", membership)

	idTok, err := jwt.Parse([]byte(resp.IDToken),
		jwt.WithKeySet(env.signer.PublicKeys()),
		jwt.WithIssuer(env.cfg.Issuer),
		jwt.WithAudience("web-app"),
	)
	require.NoError(t, err)
	idTenant, _ := idTok.Get(ClaimTenant)
	assert.Equal(t, "TenantA", idTenant)
	_, hasScope := idTok.Get(ClaimScope)
	assert.False(t, hasScope, "scope is access-token-only")

	// codes are single use
	rr = env.postToken(t, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ErrInvalidGrant, decodeOAuthError(t, rr)["error"])
}

func TestRefreshGrantDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, &users.User{ID: "u1", TenantID: "TenantA", Username: "usera@tenanta.com", Email: "usera@tenanta.com", Active: true})
	require.NoError(t, env.grants.Put(context.Background(), GrantKindRefresh, "rt1",
		Grant{Subject: "u1", ClientID: "web-app", Scope: "openid"}, time.Hour))

	env.backend.SetActive("u1", false)

	rr := env.postToken(t, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"rt1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeOAuthError(t, rr)
	assert.Equal(t, ErrInvalidGrant, body["error"])
	assert.Equal(t, "The user is no longer allowed to sign in.", body["error_description"])
	assert.Empty(t, body["access_token"])
}

func TestRefreshGrantMissingSubject(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.grants.Put(context.Background(), GrantKindRefresh, "rt2",
		Grant{Subject: "gone", ClientID: "web-app"}, time.Hour))

	rr := env.postToken(t, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"rt2"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeOAuthError(t, rr)
	assert.Equal(t, ErrInvalidGrant, body["error"])
	assert.Equal(t, "The token is no longer valid.", body["error_description"])
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, &users.User{ID: "u1", TenantID: "TenantA", Username: "usera@tenanta.com", Email: "usera@tenanta.com", Active: true})
	require.NoError(t, env.grants.Put(context.Background(), GrantKindRefresh, "rt1",
		Grant{Subject: "u1", ClientID: "web-app", Scope: "api"}, time.Hour))

	resp := decodeTokenResponse(t, env.postToken(t, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"rt1"},
	}, nil))
	require.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, "rt1", resp.RefreshToken)

	// the old token is spent
	rr := env.postToken(t, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"rt1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// the rotated one works
	resp2 := decodeTokenResponse(t, env.postToken(t, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {resp.RefreshToken},
	}, nil))
	assert.NotEmpty(t, resp2.AccessToken)
}

func TestUnsupportedGrantType(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postToken(t, url.Values{"grant_type": {"password"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ErrUnsupportedGrantType, decodeOAuthError(t, rr)["error"])
}

func TestAuthorizeLoginIssuesCode(t *testing.T) {
	env := newTestEnv(t)
	hash, err := identity.HashPassword("Passw0rd!")
	require.NoError(t, err)
	env.seedUser(t, &users.User{ID: "u1", TenantID: "TenantA", Username: "usera@tenanta.com", Email: "usera@tenanta.com", PasswordHash: hash, Active: true})

	login := func(password string) *httptest.ResponseRecorder {
		form := url.Values{
			"client_id": {"web-app"},
			"username":  {"usera@tenanta.com"},
			"password":  {password},
			"scope":     {"openid"},
		}
		req := httptest.NewRequest(http.MethodPost, "/connect/authorize", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		return rr
	}

	rr := login("wrong")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ErrInvalidGrant, decodeOAuthError(t, rr)["error"])

	rr = login("Passw0rd!")
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
	var out struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Code)

	resp := decodeTokenResponse(t, env.postToken(t, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {out.Code},
	}, nil))
	tok := env.parseToken(t, resp.AccessToken)
	assert.Equal(t, "u1", tok.Subject())
}

func TestUserinfo(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, &users.User{
		ID: "u1", TenantID: "TenantA", Username: "usera@tenanta.com", Email: "usera@tenanta.com",
		FirstName: "User", LastName: "A", MembershipLevel: "gold", Active: true,
	})
	code, err := env.svc.IssueAuthorizationCode(context.Background(), "u1", "web-app", "openid")
	require.NoError(t, err)
	resp := decodeTokenResponse(t, env.postToken(t, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}, nil))

	req := httptest.NewRequest(http.MethodGet, "/connect/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

	var claims map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &claims))
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "TenantA", claims["tenant_id"])
	assert.Equal(t, "User", claims["first_name"])
	assert.Equal(t, "A", claims["last_name"])
	assert.Equal(t, "gold", claims["membership_level"])
	_, hasHierarchy := claims["user_hierarchy"]
	assert.False(t, hasHierarchy, "empty hierarchy is omitted")
}

func TestUserinfoRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/connect/userinfo", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestDiscoveryDocument(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "http://auth.test", doc["issuer"])
	assert.Equal(t, "http://auth.test/connect/token", doc["token_endpoint"])
	assert.Contains(t, doc["claims_supported"], ClaimTenant)
}
