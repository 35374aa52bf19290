package requests

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// CreateInput is a new submission.
type CreateInput struct {
	RequestType    string
	Title          string
	Description    string
	Location       *types.GeographyPoint
	Address        *types.Address
	ParkingDetails *types.ParkingDetails
	Images         []string
}

// UpdateInput carries owner edits to a pending request. Nil fields are left untouched.
type UpdateInput struct {
	Title          *string
	Description    *string
	Location       *types.GeographyPoint
	Address        *types.Address
	ParkingDetails *types.ParkingDetails
	Images         *[]string
}

// ApproveInput is the admin's approval decision.
type ApproveInput struct {
	CoinsAwarded int64
	AdminNotes   *string
}

// RequestDTO is the wire form of a request.
type RequestDTO struct {
	ID               uuid.UUID             `json:"id"`
	UserID           uuid.UUID             `json:"userId"`
	RequestType      enums.RequestType     `json:"requestType"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Location         types.GeographyPoint  `json:"location"`
	Address          types.Address         `json:"address"`
	ParkingDetails   *types.ParkingDetails `json:"parkingDetails,omitempty"`
	Images           []string              `json:"images"`
	Status           enums.RequestStatus   `json:"status"`
	AdminNotes       *string               `json:"adminNotes,omitempty"`
	CoinsAwarded     int64                 `json:"coinsAwarded"`
	ReviewedBy       *uuid.UUID            `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time            `json:"reviewedAt,omitempty"`
	CreatedParkingID *uuid.UUID            `json:"createdParkingId,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// NearbyRequestDTO is a request with its distance from the query point.
type NearbyRequestDTO struct {
	RequestDTO
	DistanceMeters float64 `json:"distanceMeters"`
}

// StatisticsDTO summarises the moderation queue.
type StatisticsDTO struct {
	Total             int64            `json:"total"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByType            map[string]int64 `json:"byType"`
	TotalCoinsAwarded int64            `json:"totalCoinsAwarded"`
}

// FromModel maps a persisted request.
func FromModel(m models.ParkingRequest) RequestDTO {
	images := []string(m.Images)
	if images == nil {
		images = []string{}
	}
	return RequestDTO{
		ID:               m.ID,
		UserID:           m.UserID,
		RequestType:      m.RequestType,
		Title:            m.Title,
		Description:      m.Description,
		Location:         m.Location,
		Address:          m.Address,
		ParkingDetails:   m.ParkingDetails,
		Images:           images,
		Status:           m.Status,
		AdminNotes:       m.AdminNotes,
		CoinsAwarded:     m.CoinsAwarded,
		ReviewedBy:       m.ReviewedBy,
		ReviewedAt:       m.ReviewedAt,
		CreatedParkingID: m.CreatedParkingID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toDTOs(rows []models.ParkingRequest) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func toNearbyDTOs(rows []NearbyRow) []NearbyRequestDTO {
	out := make([]NearbyRequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NearbyRequestDTO{
			RequestDTO:     FromModel(row.ParkingRequest),
			DistanceMeters: math.Round(row.DistanceMeters*100) / 100,
		})
	}
	return out
}
