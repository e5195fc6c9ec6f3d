package oauth

import (
	"errors"
	"net/http"

	"tenauth/internal/users"
	"tenauth/pkg/middleware"
)

// HandleUserinfo returns the flat claim mapping for the bearer token's
// subject. The lookup is unscoped: the token already proves identity, and
// the tenant in the response comes from the persisted record. A stale
// subject (user deleted since issuance) yields a fresh challenge.
func (s *Service) HandleUserinfo(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubjectFrom(r.Context())
	if sub == "" {
		userinfoChallenge(w)
		return
	}
	u, err := s.ident.FindByID(r.Context(), sub)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			userinfoChallenge(w)
			return
		}
		s.log.Errorw("userinfo lookup", "sub", sub, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Same selection logic as issuance, flattened, plus the profile names.
	claims := map[string]any{}
	for name, c := range UserClaims(u) {
		claims[name] = c.Value
	}
	claims["first_name"] = u.FirstName
	claims["last_name"] = u.LastName
	writeJSON(w, claims, http.StatusOK)
}

func userinfoChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="invalid_token", error_description="The specified access token is invalid."`)
	writeOAuthError(w, http.StatusUnauthorized, "invalid_token", "The specified access token is invalid.")
}
