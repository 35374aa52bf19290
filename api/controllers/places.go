package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/internal/address"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
)

// PlacesAutocomplete proxies address search so owners can pick a place id for a new lot.
func PlacesAutocomplete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "place search unavailable"))
			return
		}

		query := r.URL.Query()
		suggestions, err := svc.Suggest(r.Context(), address.SuggestRequest{
			Query:    query.Get("input"),
			Region:   query.Get("region"),
			Language: query.Get("language"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

// PlaceResolve returns the coordinates and postal address behind a place id.
func PlaceResolve(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "place search unavailable"))
			return
		}

		place, err := svc.Resolve(r.Context(), strings.TrimSpace(chi.URLParam(r, "placeId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, place)
	}
}
