package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
)

// TokenVerifier resolves a bearer token into the caller it identifies.
type TokenVerifier interface {
	Actor(ctx context.Context, token string) (pkgAuth.Actor, error)
}

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			actor, err := verifier.Actor(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    actor.UserID.String(),
					"actor_role": string(actor.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
