package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
)

// ActorVerifier resolves a bearer token into its caller.
type ActorVerifier interface {
	Actor(ctx context.Context, token string) (pkgAuth.Actor, error)
}

// SocketConnect authenticates the handshake and hands the upgraded connection to the hub.
// The token comes from the Authorization header or the token query parameter.
func SocketConnect(hub *realtime.Hub, verifier ActorVerifier, origins []string, opts realtime.ClientOptions, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := pkgAuth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		actor, err := verifier.Actor(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "realtime.upgrade_failed")
			return
		}

		ctx := logg.WithFields(context.WithoutCancel(r.Context()), map[string]any{
			"user_id":    actor.UserID.String(),
			"actor_role": string(actor.Role),
		})
		client := realtime.NewClient(hub, conn, actor, opts, logg)
		logg.Info(ctx, "realtime.connected")
		if err := client.Serve(ctx); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "realtime.register_failed")
			return
		}
		logg.Info(ctx, "realtime.disconnected")
	}
}

// SocketStatus reports this instance's connected clients and active rooms.
func SocketStatus(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, hub.Stats())
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.TrimRight(origin, "/")]
		return ok
	}
}
