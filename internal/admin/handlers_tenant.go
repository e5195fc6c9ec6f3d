package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tenauth/pkg/tenants"
)

// createTenant onboards a new tenant. Domain uniqueness is checked with
// an unscoped lookup and backed by the store's unique constraint, so a
// racing duplicate still yields a conflict with no partial write.
func (a *App) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Tenant name is required")
		return
	}
	if strings.TrimSpace(req.Domain) == "" {
		writeError(w, http.StatusBadRequest, "Tenant domain is required")
		return
	}

	if _, err := a.tenants.GetByDomain(r.Context(), req.Domain); err == nil {
		writeError(w, http.StatusConflict, "A tenant with this domain already exists")
		return
	} else if !errors.Is(err, tenants.ErrNotFound) {
		a.log.Errorw("tenant lookup", "domain", req.Domain, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	t := &tenants.Tenant{Name: req.Name, Domain: req.Domain, Active: true}
	if err := a.tenants.Create(r.Context(), t); err != nil {
		if errors.Is(err, tenants.ErrDomainTaken) {
			writeError(w, http.StatusConflict, "A tenant with this domain already exists")
			return
		}
		a.log.Errorw("tenant create", "domain", req.Domain, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.log.Infow("tenant created", "tenant", t.ID, "name", t.Name)
	writeJSON(w, toResponse(t), http.StatusCreated)
}

func (a *App) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := a.tenants.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		a.log.Errorw("tenant get", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, toResponse(t), http.StatusOK)
}

func (a *App) listTenants(w http.ResponseWriter, r *http.Request) {
	all, err := a.tenants.List(r.Context())
	if err != nil {
		a.log.Errorw("tenant list", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]tenantResponse, 0, len(all))
	for i := range all {
		out = append(out, toResponse(&all[i]))
	}
	writeJSON(w, out, http.StatusOK)
}
