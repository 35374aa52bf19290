package types

import (
	"database/sql/driver"
	"strings"
)

// Address is a postal address persisted as JSONB alongside a geography column.
type Address struct {
	Street     string `json:"street,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city,omitempty" validate:"omitempty,max=100"`
	State      string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode,omitempty" validate:"omitempty,max=20"`
	Country    string `json:"country,omitempty" validate:"omitempty,max=100"`
	Formatted  string `json:"formatted,omitempty" validate:"omitempty,max=300"`
}

// IsZero reports whether no address component is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the formatted address, or joins the components when none was provided.
func (a Address) String() string {
	if a.Formatted != "" {
		return a.Formatted
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) Value() (driver.Value, error) {
	return valueJSON(a)
}

func (a *Address) Scan(value interface{}) error {
	*a = Address{}
	return scanJSON("address", value, a)
}
