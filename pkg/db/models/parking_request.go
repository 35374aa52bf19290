package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// ParkingRequest is a user submission awaiting admin moderation.
type ParkingRequest struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	RequestType      enums.RequestType     `gorm:"column:request_type;type:text;not null"`
	Title            string                `gorm:"column:title;not null"`
	Description      string                `gorm:"column:description;not null"`
	Location         types.GeographyPoint  `gorm:"column:location;type:geography(Point,4326);not null"`
	Address          types.Address         `gorm:"column:address;type:jsonb;not null;default:'{}'"`
	ParkingDetails   *types.ParkingDetails `gorm:"column:parking_details;type:jsonb"`
	Images           pq.StringArray        `gorm:"column:images;type:text[];not null;default:'{}'"`
	Status           enums.RequestStatus   `gorm:"column:status;type:text;not null;default:pending"`
	AdminNotes       *string               `gorm:"column:admin_notes"`
	CoinsAwarded     int64                 `gorm:"column:coins_awarded;not null;default:0"`
	ReviewedBy       *uuid.UUID            `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt       *time.Time            `gorm:"column:reviewed_at"`
	CreatedParkingID *uuid.UUID            `gorm:"column:created_parking_id;type:uuid"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
