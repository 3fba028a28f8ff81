// Package handler exposes committee management over REST.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commie/backend/internal/apperr"
	auditrepo "commie/backend/internal/audit/repository"
	"commie/backend/internal/committee/domain"
	committeerepo "commie/backend/internal/committee/repository"
	"commie/backend/internal/committee/service"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/server/guard"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
)

// Handler serves the committee endpoints.
type Handler struct {
	svc        *service.Service
	committees committeerepo.Repository
	audit      auditrepo.Repository
}

// New returns a committee handler.
func New(svc *service.Service, committees committeerepo.Repository, audit auditrepo.Repository) *Handler {
	return &Handler{svc: svc, committees: committees, audit: audit}
}

// MountCollection registers the /committees routes.
func (h *Handler) MountCollection(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
}

// Mount registers the routes under /committee/{committeeID}.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
	r.Delete("/", h.delete)
	r.Get("/members", h.listMembers)
	r.Post("/members", h.setMember)
	r.Delete("/members/{userID}", h.removeMember)
	r.Post("/access-request", h.requestAccess)
	r.Get("/access-requests", h.listAccessRequests)
	r.Post("/access-requests/{requestID}/approve", h.decideAccessRequest(true))
	r.Post("/access-requests/{requestID}/deny", h.decideAccessRequest(false))
	r.Get("/audit", h.listAudit)
}

type settingsPayload struct {
	RequireSecond      bool            `json:"requireSecond"`
	AllowAbstentions   bool            `json:"allowAbstentions"`
	VotingPeriodDays   int             `json:"votingPeriodDays"`
	EnforcementLevel   string          `json:"enforcementLevel"`
	EnabledMotionTypes map[string]bool `json:"enabledMotionTypes,omitempty"`
	AutoArchive        bool            `json:"autoArchive"`
}

func (p settingsPayload) toDomain() domain.Settings {
	return domain.Settings{
		RequireSecond:      p.RequireSecond,
		AllowAbstentions:   p.AllowAbstentions,
		VotingPeriodDays:   p.VotingPeriodDays,
		EnforcementLevel:   domain.EnforcementLevel(p.EnforcementLevel),
		EnabledMotionTypes: p.EnabledMotionTypes,
		AutoArchive:        p.AutoArchive,
	}
}

func settingsView(s domain.Settings) settingsPayload {
	return settingsPayload{
		RequireSecond:      s.RequireSecond,
		AllowAbstentions:   s.AllowAbstentions,
		VotingPeriodDays:   s.VotingPeriodDays,
		EnforcementLevel:   string(s.EnforcementLevel),
		EnabledMotionTypes: s.EnabledMotionTypes,
		AutoArchive:        s.AutoArchive,
	}
}

type committeeView struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"orgId"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	ChairID     string          `json:"chairId,omitempty"`
	OwnerID     string          `json:"ownerId"`
	Visibility  string          `json:"visibility"`
	Settings    settingsPayload `json:"settings"`
	// Role is the caller's resolved role, so clients need no second request.
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func view(c *domain.Committee, role rbac.Role) committeeView {
	return committeeView{
		ID:          c.ID,
		OrgID:       c.OrgID,
		Title:       c.Title,
		Slug:        c.Slug,
		Description: c.Description,
		ChairID:     c.ChairID,
		OwnerID:     c.OwnerID,
		Visibility:  string(c.Visibility),
		Settings:    settingsView(c.Settings),
		Role:        string(role),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type createRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Visibility  string          `json:"visibility"`
	Settings    settingsPayload `json:"settings"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	c, err := h.svc.Create(r.Context(), user, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  req.Visibility,
		Settings:    req.Settings.toDomain(),
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view(c, rbac.RoleOwner))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user.OrganizationID == "" {
		respond.JSON(w, http.StatusOK, []committeeView{})
		return
	}
	committees, err := h.committees.ListByOrg(r.Context(), user.OrganizationID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]committeeView, 0, len(committees))
	for _, c := range committees {
		role, err := rbac.Resolve(r.Context(), user, c, h.committees)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if !rbac.CanRead(role, c) {
			continue
		}
		out = append(out, view(c, role))
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(c, role))
}

type updateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Visibility  string          `json:"visibility"`
	ChairID     string          `json:"chairId"`
	Settings    settingsPayload `json:"settings"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req updateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	updated, err := h.svc.Update(r.Context(), role, c, service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  req.Visibility,
		ChairID:     req.ChairID,
		Settings:    req.Settings.toDomain(),
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(updated, role))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	if err := h.svc.Delete(r.Context(), role, user.ID, c); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

type memberView struct {
	UserID   string    `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	members, err := h.svc.ListMembers(r.Context(), role, c, c.ID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt})
	}
	respond.JSON(w, http.StatusOK, out)
}

type setMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (h *Handler) setMember(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req setMemberRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if req.UserID == "" {
		respond.Error(w, fmt.Errorf("%w: userId is required", apperr.ErrValidation))
		return
	}
	user := middleware.UserFrom(r.Context())
	m, err := h.svc.SetMember(r.Context(), role, user.ID, c, req.UserID, domain.Role(req.Role))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, memberView{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt})
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	if err := h.svc.RemoveMember(r.Context(), role, user.ID, c, chi.URLParam(r, "userID")); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

type accessRequestView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Message   string     `json:"message,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
}

func accessView(ar *domain.AccessRequest) accessRequestView {
	return accessRequestView{
		ID:        ar.ID,
		UserID:    ar.UserID,
		Message:   ar.Message,
		Status:    string(ar.Status),
		CreatedAt: ar.CreatedAt,
		DecidedAt: ar.DecidedAt,
	}
}

type accessRequestBody struct {
	Message string `json:"message"`
}

func (h *Handler) requestAccess(w http.ResponseWriter, r *http.Request) {
	// Deliberately not ReadableCommittee: users with no access may still file.
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req accessRequestBody
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	ar, err := h.svc.RequestAccess(r.Context(), role, c, user.ID, req.Message)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, accessView(ar))
}

func (h *Handler) listAccessRequests(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	status := domain.AccessRequestStatus(r.URL.Query().Get("status"))
	requests, err := h.svc.ListAccessRequests(r.Context(), role, c, status)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]accessRequestView, 0, len(requests))
	for _, ar := range requests {
		out = append(out, accessView(ar))
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) decideAccessRequest(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		user := middleware.UserFrom(r.Context())
		if err := h.svc.DecideAccessRequest(r.Context(), role, user.ID, c, chi.URLParam(r, "requestID"), approve); err != nil {
			respond.Error(w, err)
			return
		}
		respond.NoContent(w)
	}
}

type auditView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.Committee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if !rbac.CanManageMotions(role) {
		respond.Error(w, apperr.ErrForbidden)
		return
	}
	entries, err := h.audit.ListByCommittee(r.Context(), c.ID, 200)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]auditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditView{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Resource:  e.Resource,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}
