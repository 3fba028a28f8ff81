// Package handler exposes user sync and profile management over REST.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commie/backend/internal/apperr"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
	"commie/backend/internal/user/domain"
	userrepo "commie/backend/internal/user/repository"
	"commie/backend/internal/user/service"
)

// Handler serves the /auth endpoints.
type Handler struct {
	svc   *service.Service
	users userrepo.Repository
}

// New returns a user handler.
func New(svc *service.Service, users userrepo.Repository) *Handler {
	return &Handler{svc: svc, users: users}
}

// Mount registers the routes under /auth.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/auth0/sync", h.sync)
	r.Get("/users", h.list)
	r.Put("/users/{userID}", h.update)
}

type userView struct {
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	DisplayName      string    `json:"displayName,omitempty"`
	PlatformRoles    []string  `json:"platformRoles,omitempty"`
	OrganizationID   string    `json:"organizationId,omitempty"`
	OrganizationRole string    `json:"organizationRole,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func view(u *domain.User) userView {
	return userView{
		ID:               u.ID,
		Subject:          u.Subject,
		Email:            u.Email,
		Name:             u.Name,
		DisplayName:      u.DisplayName,
		PlatformRoles:    u.PlatformRoles,
		OrganizationID:   u.OrganizationID,
		OrganizationRole: string(u.OrganizationRole),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// sync returns the local user for the verified token. The auth middleware
// already upserted the row, so this is a read of the request identity.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	respond.JSON(w, http.StatusOK, view(user))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if !user.IsPlatformAdmin() {
		respond.Error(w, apperr.ErrForbidden)
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, view(u))
	}
	respond.JSON(w, http.StatusOK, out)
}

type updateRequest struct {
	DisplayName string `json:"displayName"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFrom(r.Context())
	targetID := chi.URLParam(r, "userID")
	if caller.ID != targetID && !caller.IsPlatformAdmin() {
		respond.Error(w, apperr.ErrForbidden)
		return
	}
	target := caller
	if caller.ID != targetID {
		var err error
		target, err = h.users.GetByID(r.Context(), targetID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if target == nil {
			respond.Error(w, apperr.ErrNotFound)
			return
		}
	}
	var req updateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	updated, err := h.svc.UpdateProfile(r.Context(), target, service.ProfileInput{DisplayName: req.DisplayName})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(updated))
}
