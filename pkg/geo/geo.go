package geo

import (
	"math"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// EarthRadiusMeters is the mean Earth radius used by every distance calculation in the service.
const EarthRadiusMeters = 6371000.0

const (
	DefaultSearchRadiusMeters = 5000.0
	MaxSearchRadiusMeters     = 50000.0
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b types.GeographyPoint) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just outside [0,1] for near-antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// ValidCoordinates reports whether lat/lng are finite and inside WGS84 bounds.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidatePoint returns an INVALID_LOCATION error for out-of-range coordinates.
func ValidatePoint(p types.GeographyPoint) error {
	if !ValidCoordinates(p.Lat, p.Lng) {
		return pkgerrors.New(pkgerrors.CodeInvalidLocation, "latitude must be within [-90,90] and longitude within [-180,180]").
			WithDetails(map[string]any{"lat": p.Lat, "lng": p.Lng})
	}
	return nil
}

// ParsePoint parses a "lng,lat" pair as sent in the coordinates query parameter.
func ParsePoint(raw string) (types.GeographyPoint, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeValidation, "coordinates must be formatted as lng,lat")
	}
	return ParseLatLng(parts[1], parts[0])
}

// ParseLatLng parses separate latitude and longitude values. Both are required.
func ParseLatLng(rawLat, rawLng string) (types.GeographyPoint, error) {
	rawLat = strings.TrimSpace(rawLat)
	rawLng = strings.TrimSpace(rawLng)
	if rawLat == "" || rawLng == "" {
		return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude are required")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeInvalidLocation, "latitude must be a number")
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeInvalidLocation, "longitude must be a number")
	}
	p := types.GeographyPoint{Lat: lat, Lng: lng}
	if err := ValidatePoint(p); err != nil {
		return types.GeographyPoint{}, err
	}
	return p, nil
}

// ParseRadius parses an optional radius in meters, applying the default and the upper cap.
func ParseRadius(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSearchRadiusMeters, nil
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(radius) || radius <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "maxDistance must be a positive number of meters")
	}
	if radius > MaxSearchRadiusMeters {
		radius = MaxSearchRadiusMeters
	}
	return radius, nil
}
