package enums

import (
	"fmt"
	"strings"
)

// VehicleClass selects one of the per-class capacity/occupancy counters of a lot.
type VehicleClass string

const (
	VehicleClassCar      VehicleClass = "car"
	VehicleClassBike     VehicleClass = "bike"
	VehicleClassBusTruck VehicleClass = "bus_truck"
)

// PrimaryVehicleClass decides whether a lot is full.
const PrimaryVehicleClass = VehicleClassCar

var validVehicleClasses = []VehicleClass{
	VehicleClassCar,
	VehicleClassBike,
	VehicleClassBusTruck,
}

// VehicleClasses returns every known class in display order.
func VehicleClasses() []VehicleClass {
	out := make([]VehicleClass, len(validVehicleClasses))
	copy(out, validVehicleClasses)
	return out
}

// String implements fmt.Stringer.
func (v VehicleClass) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleClass.
func (v VehicleClass) IsValid() bool {
	for _, candidate := range validVehicleClasses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleClass converts raw input into a VehicleClass. "bus" and "truck" map to bus_truck.
func ParseVehicleClass(value string) (VehicleClass, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "bus", "truck", "bus-truck", "bustruck":
		return VehicleClassBusTruck, nil
	}
	for _, candidate := range validVehicleClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle class %q", value)
}
