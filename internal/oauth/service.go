package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenauth/internal/identity"
	"tenauth/internal/users"
	"tenauth/pkg/config"
)

// Service implements the token-issuing surface: exchange, login,
// discovery, and userinfo.
type Service struct {
	log     *zap.SugaredLogger
	cfg     config.Config
	signer  *Signer
	clients *ClientRegistry
	grants  GrantStore
	ident   *identity.Manager
}

func NewService(log *zap.SugaredLogger, cfg config.Config, signer *Signer, clients *ClientRegistry, grants GrantStore, ident *identity.Manager) *Service {
	return &Service{log: log, cfg: cfg, signer: signer, clients: clients, grants: grants, ident: ident}
}

// Routes mounts the public OAuth endpoints. Userinfo is mounted by the
// caller behind bearer authentication.
func (s *Service) Routes(r chi.Router) {
	r.Post("/connect/token", s.handleToken)
	r.Post("/connect/authorize", s.handleAuthorize)
	r.Get("/.well-known/openid-configuration", s.handleDiscovery)
	r.Get("/.well-known/jwks.json", s.handleJWKS)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, ErrInvalidRequest, "malformed request body")
		return
	}
	switch gt := r.PostFormValue("grant_type"); gt {
	case "client_credentials":
		s.exchangeClientCredentials(w, r)
	case "authorization_code":
		code := r.PostFormValue("code")
		if code == "" {
			writeOAuthError(w, http.StatusBadRequest, ErrInvalidRequest, "missing code")
			return
		}
		s.exchangeStoredGrant(w, r, GrantKindCode, code, gt, "The authorization code is no longer valid.")
	case "refresh_token":
		token := r.PostFormValue("refresh_token")
		if token == "" {
			writeOAuthError(w, http.StatusBadRequest, ErrInvalidRequest, "missing refresh_token")
			return
		}
		s.exchangeStoredGrant(w, r, GrantKindRefresh, token, gt, "The refresh token is no longer valid.")
	default:
		writeOAuthError(w, http.StatusBadRequest, ErrUnsupportedGrantType, "The specified grant type is not supported.")
	}
}

func (s *Service) exchangeClientCredentials(w http.ResponseWriter, r *http.Request) {
	id, secret := clientCredentials(r)
	client, ok := s.clients.Authenticate(id, secret)
	if !ok {
		writeOAuthError(w, http.StatusUnauthorized, ErrInvalidClient, "client authentication failed")
		return
	}
	cs := ClientClaims(r.Context(), client)
	if scope := r.PostFormValue("scope"); scope != "" {
		cs.Set(ClaimScope, scope)
	}
	cs.Set(ClaimGrantType, "client_credentials")
	access, err := s.signer.SignAccessToken(cs, s.cfg.Audience, s.cfg.AccessTokenTTL)
	if err != nil {
		s.log.Errorw("sign access token", "client", client.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
		Scope:       r.PostFormValue("scope"),
	}, http.StatusOK)
}

// exchangeStoredGrant handles authorization_code and refresh_token
// exchanges: consume the stored grant, re-fetch the subject through the
// unscoped identity surface, and fail the exchange when the user is gone
// or barred from signing in.
func (s *Service) exchangeStoredGrant(w http.ResponseWriter, r *http.Request, kind, token, grantType, staleDesc string) {
	ctx := r.Context()
	g, err := s.grants.Consume(ctx, kind, token)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, staleDesc)
			return
		}
		s.log.Errorw("grant lookup", "kind", kind, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	u, err := s.ident.FindByID(ctx, g.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, "The token is no longer valid.")
			return
		}
		s.log.Errorw("subject lookup", "sub", g.Subject, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !s.ident.CanSignIn(u) {
		writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, "The user is no longer allowed to sign in.")
		return
	}

	cs := UserClaims(u)
	if g.Scope != "" {
		cs.Set(ClaimScope, g.Scope)
	}
	cs.Set(ClaimGrantType, grantType)

	access, err := s.signer.SignAccessToken(cs, s.cfg.Audience, s.cfg.AccessTokenTTL)
	if err != nil {
		s.log.Errorw("sign access token", "sub", u.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
		Scope:       g.Scope,
	}
	if hasScopeWord(g.Scope, "openid") {
		idToken, err := s.signer.SignIDToken(cs, g.ClientID, s.cfg.AccessTokenTTL)
		if err != nil {
			s.log.Errorw("sign id token", "sub", u.ID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.IDToken = idToken
	}

	// Rotate: every user exchange yields a fresh refresh token.
	refresh := uuid.NewString()
	if err := s.grants.Put(ctx, GrantKindRefresh, refresh, g, s.cfg.RefreshTokenTTL); err != nil {
		s.log.Errorw("store refresh token", "sub", u.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.RefreshToken = refresh
	writeJSON(w, resp, http.StatusOK)
}

// handleAuthorize is the programmatic login exchange: it verifies
// resource-owner credentials and returns a single-use authorization code
// for the token endpoint. (The interactive consent UI of a full OIDC
// deployment lives in front of this.)
func (s *Service) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, ErrInvalidRequest, "malformed request body")
		return
	}
	client, ok := s.clients.Find(r.PostFormValue("client_id"))
	if !ok {
		writeOAuthError(w, http.StatusUnauthorized, ErrInvalidClient, "unknown client")
		return
	}
	u, err := s.ident.FindByName(r.Context(), r.PostFormValue("username"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, "The username or password is incorrect.")
			return
		}
		s.log.Errorw("user lookup", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := s.ident.VerifyPassword(u, r.PostFormValue("password")); err != nil {
		writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, "The username or password is incorrect.")
		return
	}
	if !s.ident.CanSignIn(u) {
		writeOAuthError(w, http.StatusBadRequest, ErrInvalidGrant, "The user is no longer allowed to sign in.")
		return
	}
	code, err := s.IssueAuthorizationCode(r.Context(), u.ID, client.ID, r.PostFormValue("scope"))
	if err != nil {
		s.log.Errorw("issue code", "sub", u.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"code":       code,
		"expires_in": int64(s.cfg.AuthCodeTTL.Seconds()),
	}, http.StatusOK)
}

// IssueAuthorizationCode stores a single-use code binding subject, client,
// and scope for a later token exchange.
func (s *Service) IssueAuthorizationCode(ctx context.Context, subject, clientID, scope string) (string, error) {
	code := uuid.NewString()
	if err := s.grants.Put(ctx, GrantKindCode, code, Grant{Subject: subject, ClientID: clientID, Scope: scope}, s.cfg.AuthCodeTTL); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	issuer := strings.TrimRight(s.cfg.Issuer, "/")
	writeJSON(w, map[string]any{
		"issuer":                 issuer,
		"authorization_endpoint": issuer + "/connect/authorize",
		"token_endpoint":         issuer + "/connect/token",
		"userinfo_endpoint":      issuer + "/connect/userinfo",
		"jwks_uri":               issuer + "/.well-known/jwks.json",
		"grant_types_supported":  []string{"authorization_code", "client_credentials", "refresh_token"},
		"scopes_supported":       []string{"openid", "profile", "email", "api"},
		"claims_supported": []string{
			ClaimSubject, ClaimName, ClaimEmail,
			ClaimTenant, ClaimHierarchy, ClaimMembership,
		},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}, http.StatusOK)
}

func (s *Service) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.signer.PublicKeys(), http.StatusOK)
}

func clientCredentials(r *http.Request) (id, secret string) {
	if u, p, ok := r.BasicAuth(); ok {
		return u, p
	}
	return r.PostFormValue("client_id"), r.PostFormValue("client_secret")
}

func hasScopeWord(scope, word string) bool {
	for _, s := range strings.Fields(scope) {
		if s == word {
			return true
		}
	}
	return false
}
