// Package server assembles the chi router from the feature handlers.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"commie/backend/internal/apperr"
	commenthandler "commie/backend/internal/comment/handler"
	committeehandler "commie/backend/internal/committee/handler"
	motionhandler "commie/backend/internal/motion/handler"
	orghandler "commie/backend/internal/organization/handler"
	"commie/backend/internal/security"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/server/respond"
	userhandler "commie/backend/internal/user/handler"
	votehandler "commie/backend/internal/vote/handler"
)

// Deps holds everything the router needs.
type Deps struct {
	DB            *sql.DB
	Verifier      *security.Verifier
	UserSync      middleware.UserSyncer
	CORSOrigins   []string
	Organizations *orghandler.Handler
	Users         *userhandler.Handler
	Committees    *committeehandler.Handler
	Motions       *motionhandler.Handler
	Votes         *votehandler.Handler
	Comments      *commenthandler.Handler
}

// NewRouter builds the HTTP handler. Committee reads take optional auth so
// public committees serve anonymous requests; all mutations require a bearer
// token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover)
	r.Use(middleware.RequestLog)
	r.Use(middleware.ClientIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", healthz(deps.DB))

	required := middleware.RequireAuth(deps.Verifier, deps.UserSync)
	optional := middleware.OptionalAuth(deps.Verifier, deps.UserSync)

	r.Group(func(r chi.Router) {
		r.Use(required)
		r.Route("/auth", deps.Users.Mount)
		r.Route("/organizations", deps.Organizations.Mount)
		r.Route("/committees", deps.Committees.MountCollection)
	})

	// Committee-scoped routes: optional auth plus a write gate, so anonymous
	// GETs reach public committees while anonymous mutations get 401.
	r.Route("/committee/{committeeID}", func(r chi.Router) {
		r.Use(optional, requireUserForWrites)
		deps.Committees.Mount(r)
		deps.Motions.Mount(r)
		deps.Votes.Mount(r)
		deps.Comments.Mount(r)
	})

	r.Route("/motion-control/{committeeID}/{motionID}", func(r chi.Router) {
		r.Use(optional, requireUserForWrites)
		deps.Motions.MountControl(r)
	})

	return otelhttp.NewHandler(r, "commie-api")
}

// requireUserForWrites rejects unauthenticated non-GET requests.
func requireUserForWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && middleware.UserFrom(r.Context()) == nil {
			respond.Error(w, apperr.ErrAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				respond.ErrorStatus(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
