package parkings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/db"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/dbtest"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/maps"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

type recordingPublisher struct {
	mu      sync.Mutex
	updates []realtime.ParkingCountUpdate
	err     error
}

func (p *recordingPublisher) PublishCountUpdate(_ context.Context, update realtime.ParkingCountUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
	return p.err
}

type fakePlaces struct {
	details *maps.PlaceDetails
	err     error
}

func (f fakePlaces) ResolvePlace(context.Context, string) (*maps.PlaceDetails, error) {
	return f.details, f.err
}

type fixture struct {
	conn *gorm.DB
	svc  Service
	pub  *recordingPublisher
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingPublisher{}
	if opts.Publisher == nil {
		opts.Publisher = pub
	}
	svc, err := NewService(NewRepository(conn), db.FromConn(conn), opts)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, pub: pub}
}

func (f *fixture) seedUser(t *testing.T, role enums.UserRole) auth.Actor {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, f.conn.Exec(
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), "User", id.String()+"@example.com", "hash", string(role), now, now,
	).Error)
	return auth.Actor{UserID: id, Role: role}
}

func (f *fixture) seedLot(t *testing.T, ownerID uuid.UUID, capacity, count int) *models.Parking {
	t.Helper()
	lot := &models.Parking{
		Name:          "Central Lot",
		Location:      types.GeographyPoint{Lat: 12.97, Lng: 77.59},
		ParkingType:   enums.ParkingTypeOpenSky,
		PaymentType:   enums.PaymentTypePaid,
		OwnershipType: enums.OwnershipTypePrivate,
		RateCar:       decimal.NewFromInt(20),
		CapacityCar:   capacity,
		CapacityBike:  5,
		CountCar:      count,
		OwnerID:       ownerID,
		IsActive:      true,
		IsApproved:    true,
	}
	require.NoError(t, NewRepository(f.conn).Create(context.Background(), lot))
	return lot
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Parking {
	t.Helper()
	lot, err := NewRepository(f.conn).FindByID(context.Background(), id)
	require.NoError(t, err)
	return lot
}

func TestRepositoryStoresNilUUIDArraysAsEmpty(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 0)
	require.Nil(t, lot.StaffIDs)

	stored := f.reload(t, lot.ID)
	assert.NotNil(t, stored.StaffIDs)
	assert.Empty(t, stored.StaffIDs)

	user := &models.User{ID: uuid.New(), Name: "Nil Arrays", Email: "nil-arrays@example.com", PasswordHash: "hash"}
	require.NoError(t, f.conn.Create(user).Error)
	loaded, err := NewRepository(f.conn).FindUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.ParkingIDs)
	assert.Empty(t, loaded.ParkingIDs)
}

func TestDecrementClampsAtZeroInLenientMode(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 2)

	got, err := f.svc.DecrementCount(context.Background(), owner, lot.ID, enums.VehicleClassCar, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentCount)
	assert.Equal(t, 10, got.AvailableSpaces)
	assert.Equal(t, 0, f.reload(t, lot.ID).CountCar)
}

func TestIncrementClampsAtCapacityInLenientMode(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 8)

	got, err := f.svc.IncrementCount(context.Background(), owner, lot.ID, enums.VehicleClassCar, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentCount)
	assert.True(t, got.IsFull)
	assert.Equal(t, float64(100), got.Occupancy)
}

func TestStrictModeRejectsOutOfBoundsChanges(t *testing.T) {
	f := newFixture(t, Options{StrictOccupancy: true})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 2)
	ctx := context.Background()

	_, err := f.svc.DecrementCount(ctx, owner, lot.ID, enums.VehicleClassCar, 5)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOccupancyOutOfBounds), "got %v", err)

	_, err = f.svc.IncrementCount(ctx, owner, lot.ID, enums.VehicleClassCar, 9)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOccupancyOutOfBounds), "got %v", err)
	assert.Equal(t, 2, f.reload(t, lot.ID).CountCar)
	assert.Empty(t, f.pub.updates)

	got, err := f.svc.IncrementCount(ctx, owner, lot.ID, enums.VehicleClassCar, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentCount)
}

func TestSetCountHonoursCapacity(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 2)
	ctx := context.Background()

	_, err := f.svc.SetCount(ctx, owner, lot.ID, enums.VehicleClassCar, 11)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOccupancyOutOfBounds))
	_, err = f.svc.SetCount(ctx, owner, lot.ID, enums.VehicleClassCar, -1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOccupancyOutOfBounds))

	got, err := f.svc.SetCount(ctx, owner, lot.ID, enums.VehicleClassBike, 4)
	require.NoError(t, err)
	assert.Equal(t, enums.VehicleClassBike, got.VehicleType)
	assert.Equal(t, 4, got.CurrentCount)
	assert.Equal(t, 1, got.AvailableSpaces)
	assert.Equal(t, 2, f.reload(t, lot.ID).CountCar)
}

func TestCountChangesRequireOwnerStaffOrAdmin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	stranger := f.seedUser(t, enums.UserRoleUser)
	staff := f.seedUser(t, enums.UserRoleStaff)
	admin := f.seedUser(t, enums.UserRoleAdmin)
	lot := f.seedLot(t, owner.UserID, 10, 0)

	_, err := f.svc.IncrementCount(ctx, stranger, lot.ID, enums.VehicleClassCar, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.AddStaff(ctx, owner, lot.ID, staff.UserID)
	require.NoError(t, err)

	_, err = f.svc.IncrementCount(ctx, staff, lot.ID, enums.VehicleClassCar, 1)
	require.NoError(t, err)
	got, err := f.svc.IncrementCount(ctx, admin, lot.ID, enums.VehicleClassCar, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentCount)
}

func TestCountChangePublishesUpdate(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 4, 1)

	_, err := f.svc.IncrementCount(context.Background(), owner, lot.ID, enums.VehicleClassCar, 1)
	require.NoError(t, err)

	require.Len(t, f.pub.updates, 1)
	update := f.pub.updates[0]
	assert.Equal(t, lot.ID, update.ParkingID)
	assert.Equal(t, 2, update.CurrentCount)
	assert.Equal(t, 4, update.Capacity)
	assert.Equal(t, 2, update.AvailableSpaces)
	assert.Equal(t, float64(50), update.Occupancy)
	assert.False(t, update.Timestamp.IsZero())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	f := newFixture(t, Options{Publisher: pub})
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 4, 1)

	got, err := f.svc.IncrementCount(context.Background(), owner, lot.ID, enums.VehicleClassCar, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentCount)
	assert.Len(t, pub.updates, 1)
}

func TestCountChangesRejectInactiveLotAndBadInput(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 4, 1)

	_, err := f.svc.IncrementCount(ctx, owner, lot.ID, enums.VehicleClassCar, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.IncrementCount(ctx, owner, lot.ID, "boat", 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.IncrementCount(ctx, owner, uuid.New(), enums.VehicleClassCar, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.Deactivate(ctx, owner, lot.ID))
	_, err = f.svc.IncrementCount(ctx, owner, lot.ID, enums.VehicleClassCar, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeLotUnavailable))
}

func TestCreateRegistersApprovedLotForOwner(t *testing.T) {
	f := newFixture(t, Options{})
	owner := f.seedUser(t, enums.UserRoleOwner)

	dto, err := f.svc.Create(context.Background(), owner, CreateInput{
		Name:       "  Riverside  ",
		Location:   &types.GeographyPoint{Lat: 40.7, Lng: -74.0},
		Capacity:   types.VehicleCounts{Car: 30, Bike: 10},
		HourlyRate: types.VehicleRates{Car: decimal.RequireFromString("2.50")},
		Amenities:  []string{"CCTV", "cctv", " ev charging "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Riverside", dto.Name)
	assert.Equal(t, owner.UserID, dto.OwnerID)
	assert.True(t, dto.IsApproved)
	assert.True(t, dto.IsActive)
	assert.Equal(t, enums.PaymentTypePaid, dto.PaymentType)
	assert.Equal(t, enums.ParkingTypeOpenSky, dto.ParkingType)
	assert.Equal(t, []string{"cctv", "ev charging"}, dto.Amenities)
	assert.True(t, dto.OperatingHours.Is24Hours)
	assert.Equal(t, 30, dto.AvailableSpaces.Car)

	var user models.User
	require.NoError(t, f.conn.Where("id = ?", owner.UserID).First(&user).Error)
	assert.Contains(t, []uuid.UUID(user.ParkingIDs), dto.ID)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	user := f.seedUser(t, enums.UserRoleUser)
	loc := &types.GeographyPoint{Lat: 1, Lng: 1}

	_, err := f.svc.Create(ctx, user, CreateInput{Name: "x", Location: loc, Capacity: types.VehicleCounts{Car: 1}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Create(ctx, owner, CreateInput{Name: "x", Location: loc})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, owner, CreateInput{Name: "x", Capacity: types.VehicleCounts{Car: 1}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))

	_, err = f.svc.Create(ctx, owner, CreateInput{Name: "x", Location: &types.GeographyPoint{Lat: 95}, Capacity: types.VehicleCounts{Car: 1}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))

	other := uuid.New()
	_, err = f.svc.Create(ctx, owner, CreateInput{Name: "x", Location: loc, Capacity: types.VehicleCounts{Car: 1}, OwnerID: &other})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestCreateResolvesPlaceID(t *testing.T) {
	places := fakePlaces{details: &maps.PlaceDetails{
		PlaceID:          "abc",
		FormattedAddress: "1 Main St, Springfield",
		Location:         maps.LatLng{Latitude: 39.78, Longitude: -89.65},
		AddressComponents: []maps.AddressComponent{
			{LongName: "Springfield", ShortName: "Springfield", Types: []string{"locality"}},
		},
	}}
	f := newFixture(t, Options{Places: places})
	admin := f.seedUser(t, enums.UserRoleAdmin)
	owner := f.seedUser(t, enums.UserRoleOwner)

	dto, err := f.svc.Create(context.Background(), admin, CreateInput{
		Name:     "Springfield Garage",
		PlaceID:  "abc",
		Capacity: types.VehicleCounts{Car: 12},
		OwnerID:  &owner.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, dto.OwnerID)
	assert.InDelta(t, 39.78, dto.Location.Lat, 1e-9)
	assert.Equal(t, "Springfield", dto.Address.City)
	assert.Equal(t, "1 Main St, Springfield", dto.Address.Formatted)
}

func TestUpdateRejectsCapacityBelowOccupancy(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	stranger := f.seedUser(t, enums.UserRoleOwner)
	lot := f.seedLot(t, owner.UserID, 10, 6)

	_, err := f.svc.Update(ctx, stranger, lot.ID, UpdateInput{Name: strPtr("Mine now")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Update(ctx, owner, lot.ID, UpdateInput{Capacity: &types.VehicleCounts{Car: 5, Bike: 5}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOccupancyOutOfBounds), "got %v", err)
	assert.Equal(t, 10, f.reload(t, lot.ID).CapacityCar)

	approved := false
	_, err = f.svc.Update(ctx, owner, lot.ID, UpdateInput{IsApproved: &approved})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	rates := types.VehicleRates{Car: decimal.NewFromInt(3), Bike: decimal.NewFromInt(1)}
	dto, err := f.svc.Update(ctx, owner, lot.ID, UpdateInput{
		Name:       strPtr("Central Lot East"),
		Capacity:   &types.VehicleCounts{Car: 6, Bike: 5},
		HourlyRate: &rates,
	})
	require.NoError(t, err)
	assert.Equal(t, "Central Lot East", dto.Name)
	assert.Equal(t, 6, dto.Capacity.Car)
	assert.True(t, dto.IsFull)
	assert.True(t, dto.HourlyRate.Car.Equal(decimal.NewFromInt(3)))
}

func TestStaffAddAndRemove(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	staff := f.seedUser(t, enums.UserRoleStaff)
	lot := f.seedLot(t, owner.UserID, 10, 0)

	_, err := f.svc.AddStaff(ctx, owner, lot.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	dto, err := f.svc.AddStaff(ctx, owner, lot.ID, staff.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{staff.UserID}, dto.StaffIDs)

	dto, err = f.svc.AddStaff(ctx, owner, lot.ID, staff.UserID)
	require.NoError(t, err)
	assert.Len(t, dto.StaffIDs, 1)

	dto, err = f.svc.RemoveStaff(ctx, owner, lot.ID, staff.UserID)
	require.NoError(t, err)
	assert.Empty(t, dto.StaffIDs)
}

func TestCreateFromRequestPromotesSubmitter(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	submitter := f.seedUser(t, enums.UserRoleUser)
	requestID := uuid.New()

	var lot *models.Parking
	err := db.FromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		lot, err = f.svc.CreateFromRequest(ctx, tx, FromRequestInput{
			RequestID: requestID,
			OwnerID:   submitter.UserID,
			Location:  types.GeographyPoint{Lat: 10, Lng: 10},
			Details: types.ParkingDetails{
				Name:     "Community Lot",
				Capacity: types.VehicleCounts{Car: 25, Bike: 4},
			},
		})
		return err
	})
	require.NoError(t, err)

	stored := f.reload(t, lot.ID)
	assert.Equal(t, 25, stored.CapacityCar)
	assert.Equal(t, submitter.UserID, stored.OwnerID)
	require.NotNil(t, stored.SourceRequestID)
	assert.Equal(t, requestID, *stored.SourceRequestID)
	assert.True(t, stored.IsApproved)

	var user models.User
	require.NoError(t, f.conn.Where("id = ?", submitter.UserID).First(&user).Error)
	assert.Equal(t, enums.UserRoleOwner, user.Role)
	assert.Equal(t, []uuid.UUID{lot.ID}, []uuid.UUID(user.ParkingIDs))
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner := f.seedUser(t, enums.UserRoleOwner)
	for i := 0; i < 3; i++ {
		f.seedLot(t, owner.UserID, 10, 0)
	}
	free := f.seedLot(t, owner.UserID, 10, 0)
	require.NoError(t, f.conn.Model(&models.Parking{}).Where("id = ?", free.ID).Update("payment_type", enums.PaymentTypeFree).Error)
	hidden := f.seedLot(t, owner.UserID, 10, 0)
	require.NoError(t, f.svc.Deactivate(ctx, owner, hidden.ID))

	page, err := f.svc.List(ctx, ListFilter{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(4), page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)

	freeOnly := enums.PaymentTypeFree
	page, err = f.svc.List(ctx, ListFilter{PaymentType: &freeOnly}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, free.ID, page.Items[0].ID)

	mine, err := f.svc.ListMine(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}

type nearestStub struct {
	Repository
	got  NearestQuery
	rows []NearbyRow
}

func (n *nearestStub) Nearest(_ context.Context, q NearestQuery) ([]NearbyRow, error) {
	n.got = q
	return n.rows, nil
}

func TestNearbyNormalisesQuery(t *testing.T) {
	conn := dbtest.Open(t)
	stub := &nearestStub{
		Repository: NewRepository(conn),
		rows: []NearbyRow{{
			Parking:        models.Parking{ID: uuid.New(), Name: "Close", CapacityCar: 4, CountCar: 4},
			DistanceMeters: 123.456,
		}},
	}
	svc, err := NewService(stub, db.FromConn(conn), Options{})
	require.NoError(t, err)
	ctx := context.Background()
	point := types.GeographyPoint{Lat: 12.9, Lng: 77.6}

	hits, err := svc.Nearby(ctx, point, 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 123.46, hits[0].DistanceMeters)
	assert.True(t, hits[0].IsFull)
	assert.Equal(t, 5000.0, stub.got.RadiusMeters)
	assert.Equal(t, defaultNearbyLimit, stub.got.Limit)
	assert.False(t, stub.got.OnlyAvailable)

	_, err = svc.Available(ctx, point, 900000, 500)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, stub.got.RadiusMeters)
	assert.Equal(t, maxNearbyLimit, stub.got.Limit)
	assert.True(t, stub.got.OnlyAvailable)

	_, err = svc.Nearby(ctx, types.GeographyPoint{Lat: 91, Lng: 0}, 100, 10)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))
}

func strPtr(v string) *string {
	return &v
}
