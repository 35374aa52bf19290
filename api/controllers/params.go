package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/api/middleware"
	"github.com/angelmondragon/parkfinder-backend/api/validators"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

const maxNearbyLimit = 100

func requireActor(r *http.Request) (pkgAuth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).WithDetails(map[string]string{name: "must be a uuid"})
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}

type nearbyQuery struct {
	Point        types.GeographyPoint
	RadiusMeters float64
	Limit        int
}

// parseNearby reads coordinates=lng,lat (or lat and lng), maxDistance in meters and limit.
func parseNearby(r *http.Request) (nearbyQuery, error) {
	q := r.URL.Query()
	var (
		point types.GeographyPoint
		err   error
	)
	if coords := q.Get("coordinates"); strings.TrimSpace(coords) != "" {
		point, err = geo.ParsePoint(coords)
	} else {
		point, err = geo.ParseLatLng(q.Get("lat"), q.Get("lng"))
	}
	if err != nil {
		return nearbyQuery{}, err
	}

	radius, err := geo.ParseRadius(q.Get("maxDistance"))
	if err != nil {
		return nearbyQuery{}, err
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxNearbyLimit)
	if err != nil {
		return nearbyQuery{}, err
	}
	return nearbyQuery{Point: point, RadiusMeters: radius, Limit: limit}, nil
}
