package visits

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// CheckInInput is a user's claim to be at a lot.
type CheckInInput struct {
	ParkingID uuid.UUID
	Location  *types.GeographyPoint
}

// VisitDTO is the wire form of a visit.
type VisitDTO struct {
	ID                 uuid.UUID                `json:"id"`
	UserID             uuid.UUID                `json:"userId"`
	ParkingID          uuid.UUID                `json:"parkingId"`
	ReportedLocation   types.GeographyPoint     `json:"reportedLocation"`
	DistanceMeters     float64                  `json:"distanceMeters"`
	IsVerified         bool                     `json:"isVerified"`
	VerificationMethod enums.VerificationMethod `json:"verificationMethod"`
	CoinsEarned        int64                    `json:"coinsEarned"`
	CreatedAt          time.Time                `json:"createdAt"`
}

// CheckInResult is returned for an accepted check-in.
type CheckInResult struct {
	Visit      VisitDTO `json:"visit"`
	NewBalance int64    `json:"newBalance"`
}

// FromModel maps a persisted visit.
func FromModel(v models.Visit) VisitDTO {
	return VisitDTO{
		ID:                 v.ID,
		UserID:             v.UserID,
		ParkingID:          v.ParkingID,
		ReportedLocation:   v.ReportedLocation,
		DistanceMeters:     v.DistanceMeters,
		IsVerified:         v.IsVerified,
		VerificationMethod: v.VerificationMethod,
		CoinsEarned:        v.CoinsEarned,
		CreatedAt:          v.CreatedAt,
	}
}
