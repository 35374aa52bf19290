package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

func TestHaversineSamePointIsZero(t *testing.T) {
	p := types.GeographyPoint{Lat: 12.9716, Lng: 77.5946}
	assert.InDelta(t, 0, Haversine(p, p), 1e-9)
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	a := types.GeographyPoint{Lat: 0, Lng: 0}
	b := types.GeographyPoint{Lat: 1, Lng: 0}
	want := EarthRadiusMeters * math.Pi / 180
	assert.InDelta(t, want, Haversine(a, b), 0.01)
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestHaversineNearThreshold(t *testing.T) {
	lot := types.GeographyPoint{Lat: 12.9716, Lng: 77.5946}
	// ~0.0045 degrees of latitude is ~500 m.
	near := types.GeographyPoint{Lat: 12.9716 + 0.0040, Lng: 77.5946}
	far := types.GeographyPoint{Lat: 12.9716 + 0.0050, Lng: 77.5946}

	assert.Less(t, Haversine(lot, near), 500.0)
	assert.Greater(t, Haversine(lot, far), 500.0)
}

func TestValidatePoint(t *testing.T) {
	require.NoError(t, ValidatePoint(types.GeographyPoint{Lat: 90, Lng: -180}))

	err := ValidatePoint(types.GeographyPoint{Lat: 91, Lng: 0})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))

	err = ValidatePoint(types.GeographyPoint{Lat: math.NaN(), Lng: 0})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))
}

func TestHaversineGeofenceBoundary(t *testing.T) {
	lot := types.GeographyPoint{Lat: 0, Lng: 0}

	d := Haversine(lot, types.GeographyPoint{Lat: 0, Lng: 0.0045})
	assert.Greater(t, d, 500.0)
	assert.Less(t, d, 500.8)

	d = Haversine(lot, types.GeographyPoint{Lat: 0, Lng: 0.004})
	assert.InDelta(t, 444.8, d, 0.5)
}

func TestParseLatLng(t *testing.T) {
	p, err := ParseLatLng(" 12.5 ", "77.25")
	require.NoError(t, err)
	assert.Equal(t, types.GeographyPoint{Lat: 12.5, Lng: 77.25}, p)

	_, err = ParseLatLng("", "77")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = ParseLatLng("abc", "77")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))

	_, err = ParseLatLng("12", "181")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))
}

func TestParsePointLngLatOrder(t *testing.T) {
	p, err := ParsePoint("77.25,12.5")
	require.NoError(t, err)
	assert.Equal(t, types.GeographyPoint{Lat: 12.5, Lng: 77.25}, p)

	_, err = ParsePoint("77.25")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseRadius(t *testing.T) {
	r, err := ParseRadius("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchRadiusMeters, r)

	r, err = ParseRadius("1200")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, r)

	r, err = ParseRadius("999999")
	require.NoError(t, err)
	assert.Equal(t, MaxSearchRadiusMeters, r)

	_, err = ParseRadius("-3")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestHaversineAntipodalPointsStayFinite(t *testing.T) {
	halfCircumference := EarthRadiusMeters * math.Pi

	a := types.GeographyPoint{Lat: -86.78, Lng: -179}
	b := types.GeographyPoint{Lat: 86.78, Lng: 1}
	d := Haversine(a, b)
	require.False(t, math.IsNaN(d))
	assert.InDelta(t, halfCircumference, d, 1)

	for lat := -89.0; lat <= 89.0; lat += 0.37 {
		for lng := -179.0; lng <= 0; lng += 1.13 {
			p := types.GeographyPoint{Lat: lat, Lng: lng}
			antipode := types.GeographyPoint{Lat: -lat, Lng: lng + 180}
			d := Haversine(p, antipode)
			if math.IsNaN(d) || d > halfCircumference {
				t.Fatalf("haversine(%v, %v) = %v", p, antipode, d)
			}
		}
	}
}
