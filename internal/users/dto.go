package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/parkfinder-backend/pkg/db/types"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Phone         *string               `json:"phone,omitempty"`
	Role          enums.UserRole        `json:"role"`
	IsActive      bool                  `json:"isActive"`
	LastLoginAt   *time.Time            `json:"lastLoginAt,omitempty"`
	Location      *types.GeographyPoint `json:"location,omitempty"`
	ParkingIDs    []uuid.UUID           `json:"parkingIds"`
	WalletBalance int64                 `json:"walletBalance"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         enums.UserRole
}

// ProfileUpdate carries the self-service profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	Location *types.GeographyPoint
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActive:      u.IsActive,
		LastLoginAt:   u.LastLoginAt,
		Location:      u.Location,
		ParkingIDs:    append([]uuid.UUID{}, []uuid.UUID(u.ParkingIDs)...),
		WalletBalance: u.WalletBalance,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}

	return &models.User{
		ID:           uuid.New(),
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Phone:        c.Phone,
		Role:         role,
		IsActive:     true,
		ParkingIDs:   dbtypes.UUIDArray{},
	}
}
