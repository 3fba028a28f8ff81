// Package handler exposes voting over REST.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	committeerepo "commie/backend/internal/committee/repository"
	motionrepo "commie/backend/internal/motion/repository"
	"commie/backend/internal/server/guard"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
	"commie/backend/internal/vote/service"
)

// Handler serves the vote endpoints.
type Handler struct {
	svc        *service.Service
	motions    motionrepo.Repository
	committees committeerepo.Repository
}

// New returns a vote handler.
func New(svc *service.Service, motions motionrepo.Repository, committees committeerepo.Repository) *Handler {
	return &Handler{svc: svc, motions: motions, committees: committees}
}

// Mount registers the routes under /committee/{committeeID}.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/motion/{motionID}/votes", h.list)
	r.Get("/motion/{motionID}/vote-summary", h.summary)
	r.Post("/motion/{motionID}/vote", h.cast)
	r.Delete("/motion/{motionID}/vote", h.remove)
}

type castRequest struct {
	Vote        string `json:"vote"`
	IsAnonymous bool   `json:"isAnonymous"`
}

func (h *Handler) cast(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	m, err := guard.Motion(r.Context(), h.motions, c.ID, chi.URLParam(r, "motionID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req castRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	sum, err := h.svc.Cast(r.Context(), c, m, role, user.ID, req.Vote, req.IsAnonymous)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sum)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	m, err := guard.Motion(r.Context(), h.motions, c.ID, chi.URLParam(r, "motionID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	user := middleware.UserFrom(r.Context())
	sum, err := h.svc.Remove(r.Context(), c, m, role, user.ID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sum)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	c, _, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	m, err := guard.Motion(r.Context(), h.motions, c.ID, chi.URLParam(r, "motionID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	userID := ""
	if user := middleware.UserFrom(r.Context()); user != nil {
		userID = user.ID
	}
	sum, err := h.svc.Summary(r.Context(), m.ID, userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sum)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	m, err := guard.Motion(r.Context(), h.motions, c.ID, chi.URLParam(r, "motionID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	userID := ""
	if user := middleware.UserFrom(r.Context()); user != nil {
		userID = user.ID
	}
	ballots, err := h.svc.List(r.Context(), m.ID, role, userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ballots)
}
