package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parkfinder-backend/internal/parkings"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

type stubParkings struct {
	parkings.Service

	listFilter parkings.ListFilter
	listParams pagination.Params
	created    parkings.CreateInput
	nearby     struct {
		point  types.GeographyPoint
		radius float64
		limit  int
	}
	adjusted struct {
		class  enums.VehicleClass
		amount int
	}
}

func (s *stubParkings) List(_ context.Context, filter parkings.ListFilter, params pagination.Params) (pagination.Page[parkings.ParkingDTO], error) {
	s.listFilter, s.listParams = filter, params
	return pagination.Page[parkings.ParkingDTO]{Items: []parkings.ParkingDTO{}}, nil
}

func (s *stubParkings) Create(_ context.Context, actor pkgAuth.Actor, input parkings.CreateInput) (*parkings.ParkingDTO, error) {
	s.created = input
	return &parkings.ParkingDTO{ID: uuid.New(), Name: input.Name, OwnerID: actor.UserID}, nil
}

func (s *stubParkings) Nearby(_ context.Context, point types.GeographyPoint, radius float64, limit int) ([]parkings.NearbyParkingDTO, error) {
	s.nearby.point, s.nearby.radius, s.nearby.limit = point, radius, limit
	return []parkings.NearbyParkingDTO{}, nil
}

func (s *stubParkings) IncrementCount(_ context.Context, _ pkgAuth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*parkings.OccupancyDTO, error) {
	s.adjusted.class, s.adjusted.amount = class, amount
	return &parkings.OccupancyDTO{ParkingID: id, VehicleType: class, CurrentCount: amount}, nil
}

func TestParkingListParsesFilters(t *testing.T) {
	svc := &stubParkings{}
	req := newRequest(http.MethodGet, "/api/parkings?page=2&limit=5&parkingType=closed_sky&paymentType=free", "", nil)

	rec, env := serve(t, ParkingList(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, pagination.Params{Page: 2, Limit: 5}, svc.listParams)
	require.NotNil(t, svc.listFilter.ParkingType)
	assert.Equal(t, enums.ParkingTypeClosedSky, *svc.listFilter.ParkingType)
	require.NotNil(t, svc.listFilter.PaymentType)
	assert.Equal(t, enums.PaymentType("free"), *svc.listFilter.PaymentType)
}

func TestParkingListRejectsUnknownType(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/parkings?parkingType=helipad", "", nil)

	rec, env := serve(t, ParkingList(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestParkingNearbyReadsCoordinates(t *testing.T) {
	svc := &stubParkings{}
	req := newRequest(http.MethodGet, "/api/parkings/nearby?coordinates=77.59,12.97&maxDistance=1200&limit=3", "", nil)

	rec, _ := serve(t, ParkingNearby(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 12.97, svc.nearby.point.Lat, 1e-9)
	assert.InDelta(t, 77.59, svc.nearby.point.Lng, 1e-9)
	assert.Equal(t, 1200.0, svc.nearby.radius)
	assert.Equal(t, 3, svc.nearby.limit)
}

func TestParkingNearbyRejectsBadCoordinates(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/parkings/nearby?coordinates=200,95", "", nil)

	rec, _ := serve(t, ParkingNearby(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkingCreate(t *testing.T) {
	svc := &stubParkings{}
	body := `{"name":"Central","location":{"lat":12.97,"lng":77.59},"parkingType":"open_sky",
		"capacity":{"car":40,"bike":10,"bus_truck":0},"hourlyRate":{"car":"2.5","bike":"1","bus_truck":"0"}}`
	req, actor := asActor(newRequest(http.MethodPost, "/api/parkings", body, nil), enums.UserRoleOwner)

	rec, env := serve(t, ParkingCreate(svc, nil), req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Central", svc.created.Name)
	assert.Equal(t, 40, svc.created.Capacity.Car)
	assert.Equal(t, "2.5", svc.created.HourlyRate.Car.String())

	var dto parkings.ParkingDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, actor.UserID, dto.OwnerID)
}

func TestParkingCreateRequiresActor(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/parkings", `{"name":"x"}`, nil)

	rec, _ := serve(t, ParkingCreate(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParkingCreateRejectsUnknownFields(t *testing.T) {
	req, _ := asActor(newRequest(http.MethodPost, "/api/parkings", `{"name":"x","spots":3}`, nil), enums.UserRoleOwner)

	rec, _ := serve(t, ParkingCreate(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkingIncrementDefaults(t *testing.T) {
	svc := &stubParkings{}
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPost, "/api/parkings/"+id.String()+"/vehicle-count/increment", "", map[string]string{"id": id.String()}), enums.UserRoleOwner)

	rec, _ := serve(t, ParkingIncrementCount(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.VehicleClassCar, svc.adjusted.class)
	assert.Equal(t, 1, svc.adjusted.amount)
}

func TestParkingIncrementParsesClassAlias(t *testing.T) {
	svc := &stubParkings{}
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPost, "/", `{"vehicleType":"truck","amount":3}`, map[string]string{"id": id.String()}), enums.UserRoleOwner)

	rec, _ := serve(t, ParkingIncrementCount(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.VehicleClassBusTruck, svc.adjusted.class)
	assert.Equal(t, 3, svc.adjusted.amount)
}

func TestParkingIncrementRejectsUnknownClass(t *testing.T) {
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPost, "/", `{"vehicleType":"boat"}`, map[string]string{"id": id.String()}), enums.UserRoleOwner)

	rec, env := serve(t, ParkingIncrementCount(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "boat", env.Error.Details["vehicleType"])
}

func TestParkingSetCountRequiresCount(t *testing.T) {
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPut, "/", `{"vehicleType":"car"}`, map[string]string{"id": id.String()}), enums.UserRoleOwner)

	rec, _ := serve(t, ParkingSetCount(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkingGetRejectsMalformedID(t *testing.T) {
	req := newRequest(http.MethodGet, "/", "", map[string]string{"id": "not-a-uuid"})

	rec, env := serve(t, ParkingGet(&stubParkings{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a uuid", env.Error.Details["id"])
}
