package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// HasRole reports whether the actor carries any of the given roles.
func (a Actor) HasRole(roles ...enums.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Valid reports whether the actor identifies a user with a known role.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}
