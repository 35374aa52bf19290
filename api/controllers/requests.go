package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/api/validators"
	"github.com/angelmondragon/parkfinder-backend/internal/requests"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// Admin notes are trimmed and capped rather than rejected.
const maxAdminNotes = 1000

type createRequestRequest struct {
	RequestType    string                `json:"requestType" validate:"required"`
	Title          string                `json:"title" validate:"required,max=200"`
	Description    string                `json:"description" validate:"required,max=2000"`
	Location       *types.GeographyPoint `json:"location" validate:"required"`
	Address        *types.Address        `json:"address,omitempty"`
	ParkingDetails *types.ParkingDetails `json:"parkingDetails,omitempty"`
	Images         []string              `json:"images,omitempty" validate:"omitempty,dive,max=500"`
}

type updateRequestRequest struct {
	Title          *string               `json:"title,omitempty" validate:"omitempty,max=200"`
	Description    *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	Location       *types.GeographyPoint `json:"location,omitempty"`
	Address        *types.Address        `json:"address,omitempty"`
	ParkingDetails *types.ParkingDetails `json:"parkingDetails,omitempty"`
	Images         *[]string             `json:"images,omitempty"`
}

type approveRequestRequest struct {
	CoinsAwarded int64   `json:"coinsAwarded" validate:"gte=0"`
	AdminNotes   *string `json:"adminNotes,omitempty"`
}

type denyRequestRequest struct {
	AdminNotes *string `json:"adminNotes,omitempty"`
}

// RequestCreate files a community report or a new-lot proposal.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Create(r.Context(), actor, requests.CreateInput{
			RequestType:    body.RequestType,
			Title:          body.Title,
			Description:    body.Description,
			Location:       body.Location,
			Address:        body.Address,
			ParkingDetails: body.ParkingDetails,
			Images:         body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Request submitted successfully", request)
	}
}

// RequestGet returns a request to its author or an admin.
func RequestGet(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		request, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// RequestUpdate edits a pending request owned by the caller.
func RequestUpdate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body updateRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Update(r.Context(), actor, id, requests.UpdateInput{
			Title:          body.Title,
			Description:    body.Description,
			Location:       body.Location,
			Address:        body.Address,
			ParkingDetails: body.ParkingDetails,
			Images:         body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Request updated successfully", request)
	}
}

// RequestDelete withdraws a pending request, or removes any request for admins.
func RequestDelete(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Request deleted successfully", nil)
	}
}

// RequestApprove approves a pending request and credits the author.
func RequestApprove(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body approveRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Approve(r.Context(), actor, id, requests.ApproveInput{
			CoinsAwarded: body.CoinsAwarded,
			AdminNotes:   validators.SanitizeOptional(body.AdminNotes, maxAdminNotes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Request approved", request)
	}
}

// RequestDeny closes a pending request without a reward.
func RequestDeny(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body denyRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Deny(r.Context(), actor, id, validators.SanitizeOptional(body.AdminNotes, maxAdminNotes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Request denied", request)
	}
}

// RequestListMine pages through the caller's requests.
func RequestListMine(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.ListMine(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// RequestListApproved is the public feed of approved requests.
func RequestListApproved(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListApproved(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// RequestListPending is the admin review queue, oldest first.
func RequestListPending(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.ListPending(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// RequestListAll lets admins filter every request by status, type, author and date.
func RequestListAll(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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
		filter, err := requestFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListAll(r.Context(), actor, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func requestFilter(r *http.Request) (requests.ListFilter, error) {
	var filter requests.ListFilter
	query := r.URL.Query()
	invalid := map[string]string{}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		if status, err := enums.ParseRequestStatus(raw); err != nil {
			invalid["status"] = "is invalid"
		} else {
			filter.Status = &status
		}
	}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		if kind, err := enums.ParseRequestType(raw); err != nil {
			invalid["type"] = "is invalid"
		} else {
			filter.Type = &kind
		}
	}
	if raw := strings.TrimSpace(query.Get("userId")); raw != "" {
		if id, err := uuid.Parse(raw); err != nil {
			invalid["userId"] = "must be a uuid"
		} else {
			filter.UserID = &id
		}
	}
	for key, dest := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		at, err := parseQueryTime(raw)
		if err != nil {
			invalid[key] = "must be RFC3339 or YYYY-MM-DD"
			continue
		}
		*dest = &at
	}

	if len(invalid) > 0 {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid filters").WithDetails(invalid)
	}
	return filter, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at.UTC(), nil
	}
	at, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return at.UTC(), nil
}

// RequestNearby returns non-denied requests around a point.
func RequestNearby(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseNearby(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Nearby(r.Context(), q.Point, q.RadiusMeters, q.Limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// RequestStatistics summarises requests by status and type.
func RequestStatistics(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Statistics(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
