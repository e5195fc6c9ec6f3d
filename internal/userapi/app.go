// Package userapi is the tenant-scoped user directory. Every read and
// write goes through the scoped user store, so the resolved request
// tenant bounds what is visible and what gets written — handlers here
// never see another tenant's rows.
package userapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenauth/internal/identity"
	"tenauth/internal/users"
)

type App struct {
	log   *zap.SugaredLogger
	users *users.Store
}

func New(log *zap.SugaredLogger, store *users.Store) *App {
	return &App{log: log, users: store}
}

func (a *App) Routes(r chi.Router) {
	r.Post("/users", a.createUser)
	r.Get("/users", a.listUsers)
	r.Get("/users/{id}", a.getUser)
}

type createUserRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Hierarchy       string `json:"user_hierarchy"`
	MembershipLevel string `json:"membership_level"`
	Password        string `json:"password"`
	// TenantID is accepted but overridden by the request tenant when one
	// is resolved (the gate's write rule).
	TenantID string `json:"tenant_id"`
}

type userResponse struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Hierarchy       string    `json:"user_hierarchy,omitempty"`
	MembershipLevel string    `json:"membership_level,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

func toResponse(u *users.User) userResponse {
	return userResponse{
		ID: u.ID, TenantID: u.TenantID, Username: u.Username, Email: u.Email,
		FirstName: u.FirstName, LastName: u.LastName,
		Hierarchy: u.Hierarchy, MembershipLevel: u.MembershipLevel,
		Active: u.Active, CreatedAt: u.CreatedAt,
	}
}

func (a *App) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	hash := ""
	if req.Password != "" {
		var err error
		if hash, err = identity.HashPassword(req.Password); err != nil {
			a.log.Errorw("hash password", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	u := &users.User{
		TenantID: req.TenantID, Username: req.Username, Email: req.Email,
		FirstName: req.FirstName, LastName: req.LastName,
		Hierarchy: req.Hierarchy, MembershipLevel: req.MembershipLevel,
		PasswordHash: hash, Active: true,
	}
	if err := a.users.Create(r.Context(), u); err != nil {
		a.log.Errorw("user create", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, toResponse(u), http.StatusCreated)
}

func (a *App) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// absent and cross-tenant are indistinguishable here
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		a.log.Errorw("user get", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, toResponse(u), http.StatusOK)
}

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	all, err := a.users.List(r.Context())
	if err != nil {
		a.log.Errorw("user list", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]userResponse, 0, len(all))
	for i := range all {
		out = append(out, toResponse(&all[i]))
	}
	writeJSON(w, out, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, map[string]string{"error": msg}, status)
}
