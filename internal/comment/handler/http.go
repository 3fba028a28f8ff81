// Package handler exposes motion discussion over REST.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/comment/domain"
	commentrepo "commie/backend/internal/comment/repository"
	committeerepo "commie/backend/internal/committee/repository"
	motionrepo "commie/backend/internal/motion/repository"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/server/guard"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
)

const defaultPerPage = 30

// Handler serves the comment endpoints.
type Handler struct {
	comments   commentrepo.Repository
	motions    motionrepo.Repository
	committees committeerepo.Repository
}

// New returns a comment handler.
func New(comments commentrepo.Repository, motions motionrepo.Repository, committees committeerepo.Repository) *Handler {
	return &Handler{comments: comments, motions: motions, committees: committees}
}

// Mount registers the routes under /committee/{committeeID}.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/motion/{motionID}/comments/{page}", h.list)
	r.Post("/motion/{motionID}/comment/create", h.create)
	r.Delete("/motion/{motionID}/comment/{commentID}", h.delete)
}

type commentView struct {
	ID              string    `json:"id"`
	MotionID        string    `json:"motionId"`
	AuthorID        string    `json:"authorId"`
	AuthorName      string    `json:"authorName,omitempty"`
	Content         string    `json:"content"`
	Stance          string    `json:"stance"`
	IsSystemMessage bool      `json:"isSystemMessage"`
	CreatedAt       time.Time `json:"createdAt"`
}

func view(c *domain.Comment) commentView {
	return commentView{
		ID:              c.ID,
		MotionID:        c.MotionID,
		AuthorID:        c.AuthorID,
		AuthorName:      c.AuthorName,
		Content:         c.Content,
		Stance:          string(c.Stance),
		IsSystemMessage: c.IsSystemMessage,
		CreatedAt:       c.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		respond.Error(w, apperr.ErrValidation)
		return
	}
	comments, total, err := h.comments.ListByMotion(r.Context(), m.ID, page, defaultPerPage)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]commentView, 0, len(comments))
	for _, cm := range comments {
		out = append(out, view(cm))
	}
	respond.Paginated(w, out, page, defaultPerPage, total)
}

type createRequest struct {
	Content string `json:"content"`
	Stance  string `json:"stance"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if !rbac.CanPost(role) {
		respond.Error(w, apperr.ErrForbidden)
		return
	}
	m, err := guard.Motion(r.Context(), h.motions, c.ID, chi.URLParam(r, "motionID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	stance, err := domain.ParseStance(req.Stance)
	if err != nil {
		respond.Error(w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	user := middleware.UserFrom(r.Context())
	comment := &domain.Comment{
		ID:          uuid.New().String(),
		CommitteeID: c.ID,
		MotionID:    m.ID,
		AuthorID:    user.ID,
		AuthorName:  user.EffectiveName(),
		Content:     req.Content,
		Stance:      stance,
		CreatedAt:   time.Now().UTC(),
	}
	if err := comment.Validate(); err != nil {
		respond.Error(w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	if err := h.comments.Create(r.Context(), comment); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view(comment))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
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
	comment, err := h.comments.GetByID(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if comment == nil || comment.MotionID != m.ID {
		respond.Error(w, fmt.Errorf("%w: comment", apperr.ErrNotFound))
		return
	}
	user := middleware.UserFrom(r.Context())
	if comment.AuthorID != user.ID && !rbac.CanManageMotions(role) {
		respond.Error(w, apperr.ErrForbidden)
		return
	}
	if err := h.comments.Delete(r.Context(), comment.ID); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}
