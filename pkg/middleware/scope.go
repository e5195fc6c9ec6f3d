// pkg/middleware/scope.go
package middleware

import (
	"context"
	"net/http"
)

type scopeCtxKey struct{}

// WithScopes stores the token's scopes in context.
func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, scopes)
}

// ScopesFrom extracts the scopes slice from context.
func ScopesFrom(ctx context.Context) []string {
	if v := ctx.Value(scopeCtxKey{}); v != nil {
		if s, ok := v.([]string); ok {
			return s
		}
	}
	return nil
}

// RequireScope rejects requests whose bearer token (validated upstream by
// BearerAuth) does not carry the given scope. In dev, unauthenticated
// requests pass so first-tenant bootstrap works without a token.
func RequireScope(env, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenFromCtx(r.Context()) == nil {
				if env == "dev" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			if !hasScope(r.Context(), scope) {
				http.Error(w, "insufficient_scope", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasScope(ctx context.Context, scope string) bool {
	for _, s := range ScopesFrom(ctx) {
		if s == scope {
			return true
		}
	}
	return false
}
