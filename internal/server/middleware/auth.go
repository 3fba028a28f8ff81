package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"commie/backend/internal/apperr"
	"commie/backend/internal/security"
	"commie/backend/internal/server/respond"
	userdomain "commie/backend/internal/user/domain"
)

type contextKey int

const userContextKey contextKey = iota

// UserSyncer resolves verified token claims to a local user record.
type UserSyncer interface {
	EnsureUser(ctx context.Context, claims *security.Claims) (*userdomain.User, error)
}

// UserFrom returns the authenticated user from the request context, or nil
// for anonymous requests.
func UserFrom(ctx context.Context) *userdomain.User {
	u, _ := ctx.Value(userContextKey).(*userdomain.User)
	return u
}

// WithUser returns a context carrying the user. Exported for handler tests.
func WithUser(ctx context.Context, u *userdomain.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// RequireAuth verifies the bearer token and attaches the synced user to the
// request context. Requests without a valid token get 401.
func RequireAuth(verifier *security.Verifier, syncer UserSyncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, verifier, syncer)
			if err != nil {
				respond.Error(w, err)
				return
			}
			if user == nil {
				respond.Error(w, apperr.ErrAuthenticationRequired)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// passes anonymous requests through unchanged. Used on public read routes; an
// invalid token is still rejected rather than downgraded to anonymous.
func OptionalAuth(verifier *security.Verifier, syncer UserSyncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := authenticate(r, verifier, syncer)
			if err != nil {
				respond.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, verifier *security.Verifier, syncer UserSyncer) (*userdomain.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return nil, apperr.ErrAuthenticationRequired
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	user, err := syncer.EnsureUser(r.Context(), claims)
	if err != nil {
		log.Printf("auth: user sync for %s failed: %v", claims.Subject, err)
		return nil, err
	}
	return user, nil
}
