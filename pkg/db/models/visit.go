package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// Visit is the audit row written by an accepted geofence check-in.
type Visit struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	ParkingID          uuid.UUID                `gorm:"column:parking_id;type:uuid;not null"`
	ReportedLocation   types.GeographyPoint     `gorm:"column:reported_location;type:geography(Point,4326);not null"`
	DistanceMeters     float64                  `gorm:"column:distance_meters;not null"`
	IsVerified         bool                     `gorm:"column:is_verified;not null;default:false"`
	VerificationMethod enums.VerificationMethod `gorm:"column:verification_method;type:text;not null"`
	CoinsEarned        int64                    `gorm:"column:coins_earned;not null;default:0"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
}
