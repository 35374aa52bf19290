package enums

import (
	"fmt"
	"strings"
)

// ParkingType describes whether a lot is covered.
type ParkingType string

const (
	ParkingTypeOpenSky   ParkingType = "open_sky"
	ParkingTypeClosedSky ParkingType = "closed_sky"
)

var validParkingTypes = []ParkingType{
	ParkingTypeOpenSky,
	ParkingTypeClosedSky,
}

// String implements fmt.Stringer.
func (p ParkingType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ParkingType.
func (p ParkingType) IsValid() bool {
	for _, candidate := range validParkingTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseParkingType converts raw input into a ParkingType. The unseparated spellings
// "opensky"/"closedsky" are accepted as aliases.
func ParseParkingType(value string) (ParkingType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "opensky":
		return ParkingTypeOpenSky, nil
	case "closedsky":
		return ParkingTypeClosedSky, nil
	}
	for _, candidate := range validParkingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid parking type %q", value)
}

// PaymentType marks a lot as free or paid.
type PaymentType string

const (
	PaymentTypeFree PaymentType = "free"
	PaymentTypePaid PaymentType = "paid"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeFree,
	PaymentTypePaid,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}

// OwnershipType marks a lot as privately or publicly operated.
type OwnershipType string

const (
	OwnershipTypePrivate OwnershipType = "private"
	OwnershipTypePublic  OwnershipType = "public"
)

var validOwnershipTypes = []OwnershipType{
	OwnershipTypePrivate,
	OwnershipTypePublic,
}

// String implements fmt.Stringer.
func (o OwnershipType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OwnershipType.
func (o OwnershipType) IsValid() bool {
	for _, candidate := range validOwnershipTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOwnershipType converts raw input into an OwnershipType.
func ParseOwnershipType(value string) (OwnershipType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOwnershipTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ownership type %q", value)
}
