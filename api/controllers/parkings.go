package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/api/validators"
	"github.com/angelmondragon/parkfinder-backend/internal/parkings"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

type createParkingRequest struct {
	Name           string                `json:"name" validate:"required,max=100"`
	Description    *string               `json:"description,omitempty" validate:"omitempty,max=1000"`
	Location       *types.GeographyPoint `json:"location,omitempty"`
	PlaceID        string                `json:"placeId,omitempty" validate:"omitempty,max=300"`
	Address        *types.Address        `json:"address,omitempty"`
	ParkingType    enums.ParkingType     `json:"parkingType,omitempty"`
	PaymentType    enums.PaymentType     `json:"paymentType,omitempty"`
	OwnershipType  enums.OwnershipType   `json:"ownershipType,omitempty"`
	HourlyRate     types.VehicleRates    `json:"hourlyRate"`
	Capacity       types.VehicleCounts   `json:"capacity"`
	Amenities      []string              `json:"amenities,omitempty" validate:"omitempty,max=30,dive,max=50"`
	OperatingHours *types.OperatingHours `json:"operatingHours,omitempty"`
	OwnerID        *uuid.UUID            `json:"ownerId,omitempty"`
}

type updateParkingRequest struct {
	Name           *string               `json:"name,omitempty" validate:"omitempty,max=100"`
	Description    *string               `json:"description,omitempty" validate:"omitempty,max=1000"`
	Address        *types.Address        `json:"address,omitempty"`
	ParkingType    *enums.ParkingType    `json:"parkingType,omitempty"`
	PaymentType    *enums.PaymentType    `json:"paymentType,omitempty"`
	OwnershipType  *enums.OwnershipType  `json:"ownershipType,omitempty"`
	HourlyRate     *types.VehicleRates   `json:"hourlyRate,omitempty"`
	Capacity       *types.VehicleCounts  `json:"capacity,omitempty"`
	Amenities      *[]string             `json:"amenities,omitempty"`
	OperatingHours *types.OperatingHours `json:"operatingHours,omitempty"`
	IsApproved     *bool                 `json:"isApproved,omitempty"`
}

type staffRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

type setCountRequest struct {
	VehicleType string `json:"vehicleType"`
	Count       *int   `json:"count" validate:"required"`
}

type adjustCountRequest struct {
	VehicleType string `json:"vehicleType"`
	Amount      *int   `json:"amount,omitempty"`
}

// ParkingList pages through approved, active lots.
func ParkingList(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parkingFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parkingFilter(r *http.Request) (parkings.ListFilter, error) {
	var filter parkings.ListFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("parkingType")); raw != "" {
		value, err := enums.ParseParkingType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid parkingType")
		}
		filter.ParkingType = &value
	}
	if raw := strings.TrimSpace(query.Get("paymentType")); raw != "" {
		value, err := enums.ParsePaymentType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentType")
		}
		filter.PaymentType = &value
	}
	return filter, nil
}

// ParkingNearby returns lots within maxDistance of the query point, nearest first.
func ParkingNearby(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return nearbyParkings(logg, svc.Nearby)
}

// ParkingAvailable is ParkingNearby restricted to lots with free car spaces.
func ParkingAvailable(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return nearbyParkings(logg, svc.Available)
}

type nearestFunc func(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]parkings.NearbyParkingDTO, error)

func nearbyParkings(logg *logger.Logger, search nearestFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseNearby(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := search(r.Context(), q.Point, q.RadiusMeters, q.Limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ParkingGet returns one lot by id.
func ParkingGet(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parking, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parking)
	}
}

// ParkingCreate registers a lot owned by the caller, or by ownerId when an admin asks.
func ParkingCreate(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createParkingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parking, err := svc.Create(r.Context(), actor, parkings.CreateInput{
			Name:           body.Name,
			Description:    body.Description,
			Location:       body.Location,
			PlaceID:        body.PlaceID,
			Address:        body.Address,
			ParkingType:    body.ParkingType,
			PaymentType:    body.PaymentType,
			OwnershipType:  body.OwnershipType,
			HourlyRate:     body.HourlyRate,
			Capacity:       body.Capacity,
			Amenities:      body.Amenities,
			OperatingHours: body.OperatingHours,
			OwnerID:        body.OwnerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Parking created successfully", parking)
	}
}

// ParkingListMine returns the lots the caller owns.
func ParkingListMine(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ParkingUpdate edits a lot the caller owns.
func ParkingUpdate(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body updateParkingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parking, err := svc.Update(r.Context(), actor, id, parkings.UpdateInput{
			Name:           body.Name,
			Description:    body.Description,
			Address:        body.Address,
			ParkingType:    body.ParkingType,
			PaymentType:    body.PaymentType,
			OwnershipType:  body.OwnershipType,
			HourlyRate:     body.HourlyRate,
			Capacity:       body.Capacity,
			Amenities:      body.Amenities,
			OperatingHours: body.OperatingHours,
			IsApproved:     body.IsApproved,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Parking updated successfully", parking)
	}
}

// ParkingDelete deactivates a lot. The row is kept for visit history.
func ParkingDelete(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Deactivate(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Parking deleted successfully", nil)
	}
}

// ParkingAddStaff grants a user occupancy rights on a lot.
func ParkingAddStaff(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body staffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parking, err := svc.AddStaff(r.Context(), actor, id, body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Staff added", parking)
	}
}

// ParkingRemoveStaff revokes a user's occupancy rights on a lot.
func ParkingRemoveStaff(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
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
		staffID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parking, err := svc.RemoveStaff(r.Context(), actor, id, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Staff removed", parking)
	}
}

// ParkingSetCount overwrites the occupancy of one vehicle class.
func ParkingSetCount(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body setCountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		class, err := vehicleClass(body.VehicleType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update, err := svc.SetCount(r.Context(), actor, id, class, *body.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Vehicle count updated", update)
	}
}

// ParkingIncrementCount records vehicles entering a lot.
func ParkingIncrementCount(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustCount(logg, svc.IncrementCount)
}

// ParkingDecrementCount records vehicles leaving a lot.
func ParkingDecrementCount(svc parkings.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustCount(logg, svc.DecrementCount)
}

type adjustFunc func(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*parkings.OccupancyDTO, error)

func adjustCount(logg *logger.Logger, adjust adjustFunc) http.HandlerFunc {
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

		var body adjustCountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		class, err := vehicleClass(body.VehicleType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount := 1
		if body.Amount != nil {
			amount = *body.Amount
		}

		update, err := adjust(r.Context(), actor, id, class, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Vehicle count updated", update)
	}
}

// vehicleClass defaults to car when the body leaves the class out.
func vehicleClass(raw string) (enums.VehicleClass, error) {
	if strings.TrimSpace(raw) == "" {
		return enums.PrimaryVehicleClass, nil
	}
	class, err := enums.ParseVehicleClass(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicleType").
			WithDetails(map[string]any{"vehicleType": raw})
	}
	return class, nil
}
