// Package admin exposes the operational tenant API: onboarding and
// unscoped reads of tenant records. Callers authenticate with a bearer
// token carrying the admin scope (guard mounted by the server wiring).
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenauth/pkg/tenants"
)

// App is the admin application container: shared deps only,
// request-scoped work goes through context.
type App struct {
	log     *zap.SugaredLogger
	tenants tenants.Store
}

func New(log *zap.SugaredLogger, store tenants.Store) *App {
	return &App{log: log, tenants: store}
}

// Routes mounts the tenant management endpoints.
func (a *App) Routes(r chi.Router) {
	r.Post("/tenants", a.createTenant)
	r.Get("/tenants", a.listTenants)
	r.Get("/tenants/{id}", a.getTenant)
}

type createTenantRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(t *tenants.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, Domain: t.Domain, Active: t.Active, CreatedAt: t.CreatedAt}
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, map[string]string{"error": msg}, status)
}
