package models

import (
	"time"

	dbtypes "github.com/angelmondragon/parkfinder-backend/pkg/db/types"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
	"github.com/google/uuid"
)

// User represents the canonical identity entity. The wallet balance lives on the row so the
// non-negative invariant can be enforced by a single conditional UPDATE.
type User struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Email         string                `gorm:"type:text;not null;uniqueIndex"`
	Phone         *string               `gorm:"column:phone"`
	PasswordHash  string                `gorm:"column:password_hash;not null"`
	Role          enums.UserRole        `gorm:"column:role;type:text;not null;default:user"`
	IsActive      bool                  `gorm:"column:is_active;not null;default:true"`
	LastLoginAt   *time.Time            `gorm:"column:last_login_at"`
	Location      *types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	ParkingIDs    dbtypes.UUIDArray     `gorm:"type:uuid[];column:parking_ids;not null"`
	WalletBalance int64                 `gorm:"column:wallet_balance;not null;default:0"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
