package types

import (
	"database/sql/driver"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// OperatingHours is a daily open/close window persisted as JSONB.
type OperatingHours struct {
	Open      string `json:"open,omitempty"`
	Close     string `json:"close,omitempty"`
	Is24Hours bool   `json:"is24Hours"`
}

// DefaultOperatingHours is applied when a lot is created without explicit hours.
func DefaultOperatingHours() OperatingHours {
	return OperatingHours{Open: "00:00", Close: "23:59", Is24Hours: true}
}

// Validate checks the HH:MM format of both bounds unless the lot is open all day.
func (o OperatingHours) Validate() error {
	if o.Is24Hours {
		return nil
	}
	if !clockPattern.MatchString(o.Open) || !clockPattern.MatchString(o.Close) {
		return fmt.Errorf("operating hours must use HH:MM")
	}
	return nil
}

func (o OperatingHours) Value() (driver.Value, error) {
	return valueJSON(o)
}

func (o *OperatingHours) Scan(value interface{}) error {
	*o = OperatingHours{}
	return scanJSON("operating_hours", value, o)
}

// VehicleCounts holds one integer per vehicle class.
type VehicleCounts struct {
	Car      int `json:"car" validate:"gte=0"`
	Bike     int `json:"bike" validate:"gte=0"`
	BusTruck int `json:"bus_truck" validate:"gte=0"`
}

// Get returns the counter for the given class.
func (v VehicleCounts) Get(class enums.VehicleClass) int {
	switch class {
	case enums.VehicleClassBike:
		return v.Bike
	case enums.VehicleClassBusTruck:
		return v.BusTruck
	default:
		return v.Car
	}
}

// VehicleRates holds one hourly rate per vehicle class.
type VehicleRates struct {
	Car      decimal.Decimal `json:"car"`
	Bike     decimal.Decimal `json:"bike"`
	BusTruck decimal.Decimal `json:"bus_truck"`
}

// HasNegative reports whether any class carries a negative rate.
func (r VehicleRates) HasNegative() bool {
	return r.Car.IsNegative() || r.Bike.IsNegative() || r.BusTruck.IsNegative()
}

// ParkingDetails is the lot description attached to a new_parking_site request. It is
// persisted as JSONB and becomes a Parking row when the request is approved.
type ParkingDetails struct {
	Name           string              `json:"name" validate:"required,max=100"`
	Capacity       VehicleCounts       `json:"capacity"`
	ParkingType    enums.ParkingType   `json:"parkingType,omitempty"`
	PaymentType    enums.PaymentType   `json:"paymentType,omitempty"`
	OwnershipType  enums.OwnershipType `json:"ownershipType,omitempty"`
	HourlyRate     VehicleRates        `json:"hourlyRate"`
	Amenities      []string            `json:"amenities,omitempty"`
	OperatingHours *OperatingHours     `json:"operatingHours,omitempty"`
}

func (p ParkingDetails) Value() (driver.Value, error) {
	return valueJSON(p)
}

func (p *ParkingDetails) Scan(value interface{}) error {
	*p = ParkingDetails{}
	return scanJSON("parking_details", value, p)
}
