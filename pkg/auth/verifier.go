package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
)

// SessionChecker reports whether the session behind an access token is still live.
type SessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Verifier authenticates bearer tokens for both the REST API and the websocket handshake.
type Verifier struct {
	cfg      config.JWTConfig
	sessions SessionChecker
}

// NewVerifier builds a verifier. sessions may be nil, in which case revocation is not checked.
func NewVerifier(cfg config.JWTConfig, sessions SessionChecker) *Verifier {
	return &Verifier{cfg: cfg, sessions: sessions}
}

// BearerToken extracts the token from an Authorization header value. A value without the
// "Bearer " scheme is returned as-is.
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Verify parses the token and checks its session. Failures are typed Unauthorized errors,
// except session-store outages which surface as Dependency.
func (v *Verifier) Verify(ctx context.Context, token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := ParseAccessToken(v.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if !claims.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role claim")
	}

	if v.sessions != nil {
		ok, err := v.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return claims, nil
}

// Actor verifies the token and returns the caller it identifies.
func (v *Verifier) Actor(ctx context.Context, token string) (Actor, error) {
	claims, err := v.Verify(ctx, token)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}, nil
}
