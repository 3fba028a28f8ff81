// Package handler exposes the motion lifecycle over REST.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"commie/backend/internal/apperr"
	committeedomain "commie/backend/internal/committee/domain"
	committeerepo "commie/backend/internal/committee/repository"
	"commie/backend/internal/motion/domain"
	motionrepo "commie/backend/internal/motion/repository"
	"commie/backend/internal/motion/service"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/server/guard"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
)

const defaultPerPage = 20

// Handler serves the motion endpoints.
type Handler struct {
	svc        *service.Service
	motions    motionrepo.Repository
	committees committeerepo.Repository
}

// New returns a motion handler.
func New(svc *service.Service, motions motionrepo.Repository, committees committeerepo.Repository) *Handler {
	return &Handler{svc: svc, motions: motions, committees: committees}
}

// Mount registers the routes under /committee/{committeeID}.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/motions/{page}", h.list)
	r.Post("/motion/create", h.create)
	r.Get("/motion/{motionID}", h.get)
	r.Put("/motion/{motionID}", h.update)
	r.Delete("/motion/{motionID}", h.delete)
	r.Get("/motion/{motionID}/subsidiaries", h.subsidiaries)
}

// MountControl registers the routes under /motion-control/{committeeID}/{motionID}.
func (h *Handler) MountControl(r chi.Router) {
	r.Post("/second", h.transition((*service.Service).Second))
	r.Post("/open-voting", h.transition((*service.Service).OpenVoting))
	r.Post("/close-voting", h.transition((*service.Service).CloseVoting))
	r.Post("/void", h.transition((*service.Service).Void))
	r.Get("/voting-eligibility", h.votingEligibility)
}

type motionView struct {
	ID              string     `json:"id"`
	CommitteeID     string     `json:"committeeId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	FullDescription string     `json:"fullDescription,omitempty"`
	Type            string     `json:"type"`
	AuthorID        string     `json:"authorId"`
	AuthorName      string     `json:"authorName,omitempty"`
	Status          string     `json:"status"`
	VoteRequired    string     `json:"voteRequired"`
	VotingStatus    string     `json:"votingStatus"`
	VotingOpenedAt  *time.Time `json:"votingOpenedAt,omitempty"`
	VotingClosedAt  *time.Time `json:"votingClosedAt,omitempty"`
	SecondedBy      string     `json:"secondedBy,omitempty"`
	TargetMotionID  string     `json:"targetMotionId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func view(m *domain.Motion) motionView {
	return motionView{
		ID:              m.ID,
		CommitteeID:     m.CommitteeID,
		Title:           m.Title,
		Description:     m.Description,
		FullDescription: m.FullDescription,
		Type:            m.Type,
		AuthorID:        m.AuthorID,
		AuthorName:      m.AuthorName,
		Status:          string(m.Status),
		VoteRequired:    m.VoteRequired,
		VotingStatus:    string(m.VotingStatus),
		VotingOpenedAt:  m.VotingOpenedAt,
		VotingClosedAt:  m.VotingClosedAt,
		SecondedBy:      m.SecondedBy,
		TargetMotionID:  m.TargetMotionID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func actor(r *http.Request, role rbac.Role) service.Actor {
	return service.Actor{User: middleware.UserFrom(r.Context()), Role: role}
}

// parseStatuses maps the status filter segment ("active", "passed,failed",
// "voided") to motion statuses. Empty means no filter.
func parseStatuses(raw string) ([]domain.Status, error) {
	if raw == "" {
		return nil, nil
	}
	var out []domain.Status
	for _, s := range strings.Split(raw, ",") {
		st := domain.Status(strings.TrimSpace(s))
		switch st {
		case domain.StatusActive, domain.StatusPassed, domain.StatusFailed, domain.StatusVoided:
			out = append(out, st)
		default:
			return nil, apperr.ErrValidation
		}
	}
	return out, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	c, _, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		respond.Error(w, apperr.ErrValidation)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	perPage := defaultPerPage
	if pp, err := strconv.Atoi(r.URL.Query().Get("perPage")); err == nil && pp > 0 && pp <= 100 {
		perPage = pp
	}
	motions, total, err := h.motions.ListByCommittee(r.Context(), c.ID, statuses, page, perPage)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]motionView, 0, len(motions))
	for _, m := range motions {
		out = append(out, view(m))
	}
	respond.Paginated(w, out, page, perPage, total)
}

type createRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	FullDescription string `json:"fullDescription"`
	Type            string `json:"type"`
	VoteRequired    string `json:"voteRequired"`
	TargetMotionID  string `json:"targetMotionId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	c, role, err := guard.ReadableCommittee(r.Context(), h.committees, chi.URLParam(r, "committeeID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	m, err := h.svc.Create(r.Context(), c, actor(r, role), service.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Type:            req.Type,
		VoteRequired:    req.VoteRequired,
		TargetMotionID:  req.TargetMotionID,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view(m))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
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
	respond.JSON(w, http.StatusOK, view(m))
}

type updateRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	FullDescription string `json:"fullDescription"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
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
	var req updateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	updated, err := h.svc.Update(r.Context(), c, actor(r, role), m, service.UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		FullDescription: req.FullDescription,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view(updated))
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
	if err := h.svc.Delete(r.Context(), c, actor(r, role), m); err != nil {
		respond.Error(w, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) subsidiaries(w http.ResponseWriter, r *http.Request) {
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
	subs, err := h.motions.ListSubsidiaries(r.Context(), m.ID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]motionView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, view(sub))
	}
	respond.JSON(w, http.StatusOK, out)
}

// transitionOp matches the lifecycle transition method expressions
// ((*service.Service).Second and friends).
type transitionOp func(*service.Service, context.Context, *committeedomain.Committee, service.Actor, *domain.Motion) (*domain.Motion, error)

func (h *Handler) transition(op transitionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		updated, err := op(h.svc, r.Context(), c, actor(r, role), m)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, view(updated))
	}
}

type eligibilityView struct {
	Applicable   bool     `json:"applicable"`
	Eligible     bool     `json:"eligible"`
	Reasons      []string `json:"reasons,omitempty"`
	VotingStatus string   `json:"votingStatus,omitempty"`
}

func (h *Handler) votingEligibility(w http.ResponseWriter, r *http.Request) {
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
	applicable, res, err := h.svc.Eligibility(r.Context(), c, m)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, eligibilityView{
		Applicable:   applicable,
		Eligible:     res.Eligible,
		Reasons:      res.Reasons,
		VotingStatus: res.VotingStatus,
	})
}
