// Package handler exposes organization management over REST.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commie/backend/internal/organization/domain"
	"commie/backend/internal/organization/service"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
)

// Handler serves the organization endpoints.
type Handler struct {
	svc *service.Service
}

// New returns an organization handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers the routes under /organizations.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/verify-invite", h.redeemInvite)
	r.Get("/{orgID}", h.get)
	r.Put("/{orgID}", h.update)
	r.Delete("/{orgID}", h.delete)
	r.Get("/{orgID}/members", h.listMembers)
	r.Post("/{orgID}/members", h.addMember)
	r.Delete("/{orgID}/members/{userID}", h.removeMember)
	r.Post("/{orgID}/members/{userID}/role", h.setMemberRole)
	r.Get("/{orgID}/admins", h.listAdmins)
	r.Post("/{orgID}/admins/{userID}", h.promoteAdmin)
}

type orgView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// InviteToken is only present for org admins.
	InviteToken string `json:"inviteToken,omitempty"`
}

func view(o *domain.Organization, includeInvite bool) orgView {
	v := orgView{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		OwnerID:   o.OwnerID,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if includeInvite {
		v.InviteToken = o.InviteToken
	}
	return v
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	o, err := h.svc.Create(r.Context(), user, req.Name)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view(o, true))
}

type redeemRequest struct {
	Token string `json:"token"`
}

func (h *Handler) redeemInvite(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	o, err := h.svc.RedeemInvite(r.Context(), user, req.Token)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(o, false))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	orgID := chi.URLParam(r, "orgID")
	o, err := h.svc.Get(r.Context(), user, orgID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	admin := user.IsPlatformAdmin() || (user.OrganizationID == o.ID && user.OrganizationRole == "admin")
	respond.JSON(w, http.StatusOK, view(o, admin))
}

type updateRequest struct {
	Name string `json:"name"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	o, err := h.svc.Update(r.Context(), user, chi.URLParam(r, "orgID"), req.Name)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(o, true))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if err := h.svc.Delete(r.Context(), user, chi.URLParam(r, "orgID")); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

type memberView struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	members, err := h.svc.ListMembers(r.Context(), user, chi.URLParam(r, "orgID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{UserID: m.UserID, Role: string(m.Role), CreatedAt: m.CreatedAt})
	}
	respond.JSON(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	m, err := h.svc.AddMember(r.Context(), user, chi.URLParam(r, "orgID"), req.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, memberView{UserID: m.UserID, Role: string(m.Role), CreatedAt: m.CreatedAt})
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	admins, err := h.svc.ListAdmins(r.Context(), user, chi.URLParam(r, "orgID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]memberView, 0, len(admins))
	for _, m := range admins {
		out = append(out, memberView{UserID: m.UserID, Role: string(m.Role), CreatedAt: m.CreatedAt})
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) promoteAdmin(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	err := h.svc.SetMemberRole(r.Context(), user, chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), domain.RoleAdmin)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if err := h.svc.RemoveMember(r.Context(), user, chi.URLParam(r, "orgID"), chi.URLParam(r, "userID")); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) setMemberRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	err := h.svc.SetMemberRole(r.Context(), user, chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), domain.Role(req.Role))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}
