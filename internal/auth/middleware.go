package auth

import (
	"context"
	"net/http"

	"github.com/wecare-health/wecare/internal/identity"
)

type contextKey string

const actorKey contextKey = "actor"

func WithActor(ctx context.Context, a identity.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the caller attached by Middleware.
func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	a, ok := ctx.Value(actorKey).(identity.Actor)
	return a, ok
}

// Middleware attaches the session actor to the request context when a valid
// session is present. Requests without one pass through untouched.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.FromRequest(r)
		if err == nil {
			r = r.WithContext(WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests that carry no actor, or whose actor holds none of
// roles when any are given. Rejections are written by deny.
func Require(deny func(w http.ResponseWriter, r *http.Request, status int), roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized)
				return
			}
			if len(roles) > 0 && !hasRole(actor.Role, roles) {
				deny(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role identity.Role, roles []identity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
