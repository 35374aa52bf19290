package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parkfinder-backend/internal/requests"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
)

type stubRequests struct {
	requests.Service

	filter   requests.ListFilter
	approved requests.ApproveInput
	denied   *string
	created  requests.CreateInput
}

func (s *stubRequests) ListAll(_ context.Context, _ pkgAuth.Actor, filter requests.ListFilter, _ pagination.Params) (pagination.Page[requests.RequestDTO], error) {
	s.filter = filter
	return pagination.Page[requests.RequestDTO]{Items: []requests.RequestDTO{}}, nil
}

func (s *stubRequests) Create(_ context.Context, actor pkgAuth.Actor, input requests.CreateInput) (*requests.RequestDTO, error) {
	s.created = input
	return &requests.RequestDTO{ID: uuid.New(), UserID: actor.UserID, Title: input.Title}, nil
}

func (s *stubRequests) Approve(_ context.Context, _ pkgAuth.Actor, id uuid.UUID, input requests.ApproveInput) (*requests.RequestDTO, error) {
	s.approved = input
	return &requests.RequestDTO{ID: id, Status: enums.RequestStatusApproved}, nil
}

func (s *stubRequests) Deny(_ context.Context, _ pkgAuth.Actor, id uuid.UUID, notes *string) (*requests.RequestDTO, error) {
	s.denied = notes
	return &requests.RequestDTO{ID: id, Status: enums.RequestStatusDenied}, nil
}

func TestRequestListAllParsesFilters(t *testing.T) {
	svc := &stubRequests{}
	userID := uuid.New()
	target := "/api/requests?status=pending&type=new_parking_site&userId=" + userID.String() +
		"&from=2026-01-01&to=2026-02-01T12:00:00Z"
	req, _ := asActor(newRequest(http.MethodGet, target, "", nil), enums.UserRoleAdmin)

	rec, _ := serve(t, RequestListAll(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.Status)
	assert.Equal(t, enums.RequestStatusPending, *svc.filter.Status)
	require.NotNil(t, svc.filter.Type)
	assert.Equal(t, enums.RequestTypeNewParkingSite, *svc.filter.Type)
	require.NotNil(t, svc.filter.UserID)
	assert.Equal(t, userID, *svc.filter.UserID)
	require.NotNil(t, svc.filter.From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *svc.filter.From)
	require.NotNil(t, svc.filter.To)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), *svc.filter.To)
}

func TestRequestListAllCollectsFilterErrors(t *testing.T) {
	req, _ := asActor(newRequest(http.MethodGet, "/api/requests?status=lost&userId=abc&from=yesterday", "", nil), enums.UserRoleAdmin)

	rec, env := serve(t, RequestListAll(&stubRequests{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Details, "status")
	assert.Contains(t, env.Error.Details, "userId")
	assert.Contains(t, env.Error.Details, "from")
}

func TestRequestCreateRequiresLocation(t *testing.T) {
	body := `{"requestType":"no_parking_zone","title":"Blocked curb","description":"Tow zone signage"}`
	req, _ := asActor(newRequest(http.MethodPost, "/api/requests", body, nil), enums.UserRoleUser)

	rec, env := serve(t, RequestCreate(&stubRequests{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Details, "location")
}

func TestRequestCreate(t *testing.T) {
	svc := &stubRequests{}
	body := `{"requestType":"no_parking_zone","title":"Blocked curb","description":"Tow zone signage",
		"location":{"lat":12.9,"lng":77.6},"images":["https://img.example/1.jpg"]}`
	req, _ := asActor(newRequest(http.MethodPost, "/api/requests", body, nil), enums.UserRoleUser)

	rec, env := serve(t, RequestCreate(svc, nil), req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Request submitted successfully", env.Message)
	assert.Equal(t, "no_parking_zone", svc.created.RequestType)
	require.NotNil(t, svc.created.Location)
	assert.Equal(t, 12.9, svc.created.Location.Lat)
	assert.Len(t, svc.created.Images, 1)
}

func TestRequestApproveForwardsDecision(t *testing.T) {
	svc := &stubRequests{}
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPut, "/", `{"coinsAwarded":25,"adminNotes":"verified"}`, map[string]string{"id": id.String()}), enums.UserRoleAdmin)

	rec, _ := serve(t, RequestApprove(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(25), svc.approved.CoinsAwarded)
	require.NotNil(t, svc.approved.AdminNotes)
	assert.Equal(t, "verified", *svc.approved.AdminNotes)
}

func TestRequestApproveRejectsNegativeCoins(t *testing.T) {
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPut, "/", `{"coinsAwarded":-5}`, map[string]string{"id": id.String()}), enums.UserRoleAdmin)

	rec, _ := serve(t, RequestApprove(&stubRequests{}, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestDeny(t *testing.T) {
	svc := &stubRequests{}
	id := uuid.New()
	req, _ := asActor(newRequest(http.MethodPut, "/", `{"adminNotes":"  duplicate  "}`, map[string]string{"id": id.String()}), enums.UserRoleAdmin)

	rec, _ := serve(t, RequestDeny(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.denied)
	assert.Equal(t, "duplicate", *svc.denied)
}
