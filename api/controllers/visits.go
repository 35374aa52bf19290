package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/api/validators"
	"github.com/angelmondragon/parkfinder-backend/internal/visits"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

type checkInRequest struct {
	ParkingID uuid.UUID             `json:"parkingId" validate:"required"`
	Location  *types.GeographyPoint `json:"location" validate:"required"`
}

// VisitCheckIn verifies the caller is at the lot and pays the visit reward.
func VisitCheckIn(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckIn(r.Context(), actor.UserID, visits.CheckInInput{
			ParkingID: body.ParkingID,
			Location:  body.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Check-in successful", result)
	}
}

// VisitListMine pages through the caller's visits, newest first.
func VisitListMine(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMine(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// VisitVerify marks a visit as manually verified.
func VisitVerify(svc visits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visit, err := svc.Verify(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Visit verified", visit)
	}
}
