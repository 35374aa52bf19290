package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

// AccessTokenPayload is what a caller supplies when minting a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI binds the token to a refresh session. A random id is generated when empty.
	JTI string
}

// AccessTokenClaims is the JWT body handed to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks: the subject must name the user and the
// role must be known.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return fmt.Errorf("%w: subject does not match user", jwt.ErrTokenInvalidClaims)
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", jwt.ErrTokenInvalidClaims, c.Role)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing jti", jwt.ErrTokenInvalidClaims)
	}
	return nil
}
