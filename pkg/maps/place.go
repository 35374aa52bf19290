package maps

import (
	"strings"

	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// Point returns the place coordinates as a geography point.
func (p PlaceDetails) Point() types.GeographyPoint {
	return types.GeographyPoint{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
}

// Address maps Google address components onto the stored postal address.
func (p PlaceDetails) Address() types.Address {
	addr := types.Address{Formatted: strings.TrimSpace(p.FormattedAddress)}

	var number, route string
	for _, comp := range p.AddressComponents {
		switch {
		case hasType(comp, "street_number"):
			number = comp.LongName
		case hasType(comp, "route"):
			route = comp.LongName
		case hasType(comp, "locality"), hasType(comp, "postal_town"):
			if addr.City == "" {
				addr.City = comp.LongName
			}
		case hasType(comp, "administrative_area_level_1"):
			addr.State = comp.ShortName
		case hasType(comp, "postal_code"):
			addr.PostalCode = comp.LongName
		case hasType(comp, "country"):
			addr.Country = comp.ShortName
		}
	}
	addr.Street = strings.TrimSpace(strings.Join([]string{number, route}, " "))
	return addr
}

func hasType(comp AddressComponent, want string) bool {
	for _, t := range comp.Types {
		if t == want {
			return true
		}
	}
	return false
}
