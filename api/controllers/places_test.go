package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parkfinder-backend/internal/address"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/maps"
)

type stubPlaces struct {
	req maps.AutocompleteRequest
}

func (s *stubPlaces) Autocomplete(_ context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	s.req = req
	return []maps.AutocompleteSuggestion{{PlaceID: "p1", Description: "Brigade Road"}}, nil
}

func (s *stubPlaces) ResolvePlace(context.Context, string) (*maps.PlaceDetails, error) {
	return &maps.PlaceDetails{PlaceID: "p1", Location: maps.LatLng{Latitude: 12.97, Longitude: 77.61}}, nil
}

func TestPlacesAutocomplete(t *testing.T) {
	places := &stubPlaces{}
	req, _ := asActor(newRequest(http.MethodGet, "/api/places/autocomplete?input=brigade&region=IN", "", nil), enums.UserRoleOwner)

	rec, env := serve(t, PlacesAutocomplete(address.NewService(places), nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "brigade", places.req.Input)
	assert.JSONEq(t, `[{"placeId":"p1","description":"Brigade Road"}]`, string(env.Data))
}

func TestPlacesAutocompleteWithoutMapsKey(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/places/autocomplete?input=brigade", "", nil)

	rec, env := serve(t, PlacesAutocomplete(address.NewService(nil), nil), req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", env.Error.Code)
}

func TestPlaceResolve(t *testing.T) {
	req := newRequest(http.MethodGet, "/", "", map[string]string{"placeId": "p1"})

	rec, env := serve(t, PlaceResolve(address.NewService(&stubPlaces{}), nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"lat":12.97`)
}
