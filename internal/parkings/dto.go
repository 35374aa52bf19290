package parkings

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// ParkingDTO is the wire form of a lot, including derived availability.
type ParkingDTO struct {
	ID                  uuid.UUID            `json:"id"`
	Name                string               `json:"name"`
	Description         *string              `json:"description,omitempty"`
	Location            types.GeographyPoint `json:"location"`
	Address             types.Address        `json:"address"`
	ParkingType         enums.ParkingType    `json:"parkingType"`
	PaymentType         enums.PaymentType    `json:"paymentType"`
	OwnershipType       enums.OwnershipType  `json:"ownershipType"`
	HourlyRate          types.VehicleRates   `json:"hourlyRate"`
	Capacity            types.VehicleCounts  `json:"capacity"`
	CurrentCount        types.VehicleCounts  `json:"currentCount"`
	AvailableSpaces     types.VehicleCounts  `json:"availableSpaces"`
	IsFull              bool                 `json:"isFull"`
	OccupancyPercentage float64              `json:"occupancyPercentage"`
	Amenities           []string             `json:"amenities"`
	OperatingHours      types.OperatingHours `json:"operatingHours"`
	OwnerID             uuid.UUID            `json:"ownerId"`
	StaffIDs            []uuid.UUID          `json:"staffIds"`
	IsActive            bool                 `json:"isActive"`
	IsApproved          bool                 `json:"isApproved"`
	SourceRequestID     *uuid.UUID           `json:"sourceRequestId,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// NearbyParkingDTO is a search hit with its distance from the query point.
type NearbyParkingDTO struct {
	ParkingDTO
	DistanceMeters float64 `json:"distanceMeters"`
}

// OccupancyDTO is the result of an occupancy mutation; the same payload is pushed to the
// lot's live-update room.
type OccupancyDTO = realtime.ParkingCountUpdate

// FromModel maps a persisted lot.
func FromModel(p models.Parking) ParkingDTO {
	capacity := p.Capacities()
	counts := p.Counts()
	primary := enums.PrimaryVehicleClass

	amenities := []string(p.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	staff := []uuid.UUID(p.StaffIDs)
	if staff == nil {
		staff = []uuid.UUID{}
	}

	return ParkingDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Location:      p.Location,
		Address:       p.Address,
		ParkingType:   p.ParkingType,
		PaymentType:   p.PaymentType,
		OwnershipType: p.OwnershipType,
		HourlyRate:    p.Rates(),
		Capacity:      capacity,
		CurrentCount:  counts,
		AvailableSpaces: types.VehicleCounts{
			Car:      available(capacity.Car, counts.Car),
			Bike:     available(capacity.Bike, counts.Bike),
			BusTruck: available(capacity.BusTruck, counts.BusTruck),
		},
		IsFull:              p.IsFull(),
		OccupancyPercentage: occupancyPercent(counts.Get(primary), capacity.Get(primary)),
		Amenities:           amenities,
		OperatingHours:      p.OperatingHours,
		OwnerID:             p.OwnerID,
		StaffIDs:            staff,
		IsActive:            p.IsActive,
		IsApproved:          p.IsApproved,
		SourceRequestID:     p.SourceRequestID,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func toDTOs(rows []models.Parking) []ParkingDTO {
	out := make([]ParkingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func toNearbyDTOs(rows []NearbyRow) []NearbyParkingDTO {
	out := make([]NearbyParkingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NearbyParkingDTO{
			ParkingDTO:     FromModel(row.Parking),
			DistanceMeters: math.Round(row.DistanceMeters*100) / 100,
		})
	}
	return out
}

func occupancyFor(p models.Parking, class enums.VehicleClass, at time.Time) OccupancyDTO {
	count, capacity := p.Count(class), p.Capacity(class)
	return OccupancyDTO{
		ParkingID:       p.ID,
		VehicleType:     class,
		CurrentCount:    count,
		Capacity:        capacity,
		AvailableSpaces: available(capacity, count),
		IsFull:          count >= capacity,
		Occupancy:       occupancyPercent(count, capacity),
		Timestamp:       at,
	}
}

func available(capacity, count int) int {
	if count >= capacity {
		return 0
	}
	return capacity - count
}

// occupancyPercent rounds to two decimals. A class without capacity counts as full.
func occupancyPercent(count, capacity int) float64 {
	if capacity <= 0 {
		return 100
	}
	return math.Round(float64(count)/float64(capacity)*10000) / 100
}
