package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/parkfinder-backend/pkg/db/types"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// Parking is a lot with per-vehicle-class capacity and live occupancy counters.
type Parking struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string               `gorm:"column:name;not null"`
	Description      *string              `gorm:"column:description"`
	Location         types.GeographyPoint `gorm:"column:location;type:geography(Point,4326);not null"`
	Address          types.Address        `gorm:"column:address;type:jsonb;not null;default:'{}'"`
	ParkingType      enums.ParkingType    `gorm:"column:parking_type;type:text;not null"`
	PaymentType      enums.PaymentType    `gorm:"column:payment_type;type:text;not null"`
	OwnershipType    enums.OwnershipType  `gorm:"column:ownership_type;type:text;not null"`
	RateCar          decimal.Decimal      `gorm:"column:rate_car;type:numeric(10,2);not null;default:0"`
	RateBike         decimal.Decimal      `gorm:"column:rate_bike;type:numeric(10,2);not null;default:0"`
	RateBusTruck     decimal.Decimal      `gorm:"column:rate_bus_truck;type:numeric(10,2);not null;default:0"`
	CapacityCar      int                  `gorm:"column:capacity_car;not null"`
	CapacityBike     int                  `gorm:"column:capacity_bike;not null;default:0"`
	CapacityBusTruck int                  `gorm:"column:capacity_bus_truck;not null;default:0"`
	CountCar         int                  `gorm:"column:count_car;not null;default:0"`
	CountBike        int                  `gorm:"column:count_bike;not null;default:0"`
	CountBusTruck    int                  `gorm:"column:count_bus_truck;not null;default:0"`
	Amenities        pq.StringArray       `gorm:"column:amenities;type:text[];not null;default:'{}'"`
	OperatingHours   types.OperatingHours `gorm:"column:operating_hours;type:jsonb;not null;default:'{}'"`
	OwnerID          uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	StaffIDs         dbtypes.UUIDArray    `gorm:"column:staff_ids;type:uuid[];not null"`
	IsActive         bool                 `gorm:"column:is_active;not null;default:true"`
	IsApproved       bool                 `gorm:"column:is_approved;not null;default:false"`
	SourceRequestID  *uuid.UUID           `gorm:"column:source_request_id;type:uuid"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Capacity returns the capacity configured for a vehicle class.
func (p Parking) Capacity(class enums.VehicleClass) int {
	return p.Capacities().Get(class)
}

// Count returns the current occupancy for a vehicle class.
func (p Parking) Count(class enums.VehicleClass) int {
	return p.Counts().Get(class)
}

func (p Parking) Capacities() types.VehicleCounts {
	return types.VehicleCounts{Car: p.CapacityCar, Bike: p.CapacityBike, BusTruck: p.CapacityBusTruck}
}

func (p Parking) Counts() types.VehicleCounts {
	return types.VehicleCounts{Car: p.CountCar, Bike: p.CountBike, BusTruck: p.CountBusTruck}
}

func (p Parking) Rates() types.VehicleRates {
	return types.VehicleRates{Car: p.RateCar, Bike: p.RateBike, BusTruck: p.RateBusTruck}
}

// IsFull reports whether the primary vehicle class has no free space.
func (p Parking) IsFull() bool {
	class := enums.PrimaryVehicleClass
	return p.Count(class) >= p.Capacity(class)
}

// IsStaff reports whether userID is listed as staff of the lot.
func (p Parking) IsStaff(userID uuid.UUID) bool {
	return p.StaffIDs.Contains(userID)
}
