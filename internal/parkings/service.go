package parkings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/parkfinder-backend/pkg/db/types"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/maps"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

const (
	defaultNearbyLimit = 20
	maxNearbyLimit     = 100
	maxNameLength      = 100
)

const (
	opIncrement = "increment"
	opDecrement = "decrement"
	opSet       = "set"
)

// CountPublisher pushes occupancy changes to live-update subscribers.
type CountPublisher interface {
	PublishCountUpdate(ctx context.Context, update realtime.ParkingCountUpdate) error
}

// PlaceResolver looks up address and coordinates for a Google place id.
type PlaceResolver interface {
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the lot registry and its occupancy counters.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*ParkingDTO, error)
	// CreateFromRequest promotes an approved request into a lot inside the caller's transaction.
	CreateFromRequest(ctx context.Context, tx *gorm.DB, input FromRequestInput) (*models.Parking, error)
	Get(ctx context.Context, id uuid.UUID) (*ParkingDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[ParkingDTO], error)
	ListMine(ctx context.Context, actor auth.Actor) ([]ParkingDTO, error)
	Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyParkingDTO, error)
	Available(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyParkingDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*ParkingDTO, error)
	Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	AddStaff(ctx context.Context, actor auth.Actor, id, staffID uuid.UUID) (*ParkingDTO, error)
	RemoveStaff(ctx context.Context, actor auth.Actor, id, staffID uuid.UUID) (*ParkingDTO, error)
	IncrementCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*OccupancyDTO, error)
	DecrementCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*OccupancyDTO, error)
	SetCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, count int) (*OccupancyDTO, error)
}

// Options carries optional collaborators and behavior switches.
type Options struct {
	// StrictOccupancy rejects out-of-bounds count changes instead of clamping them.
	StrictOccupancy bool
	Publisher       CountPublisher
	Places          PlaceResolver
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	strict bool
	pub    CountPublisher
	places PlaceResolver
	m      *metrics.Metrics
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the lot registry.
func NewService(repo Repository, tx txRunner, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		strict: opts.StrictOccupancy,
		pub:    opts.Publisher,
		places: opts.Places,
		m:      opts.Metrics,
		logg:   opts.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateInput describes a lot registered directly by an owner or admin.
type CreateInput struct {
	Name           string
	Description    *string
	Location       *types.GeographyPoint
	PlaceID        string
	Address        *types.Address
	ParkingType    enums.ParkingType
	PaymentType    enums.PaymentType
	OwnershipType  enums.OwnershipType
	HourlyRate     types.VehicleRates
	Capacity       types.VehicleCounts
	Amenities      []string
	OperatingHours *types.OperatingHours
	// OwnerID lets an admin register a lot on behalf of another user.
	OwnerID *uuid.UUID
}

// UpdateInput carries the mutable lot fields. Nil fields are left untouched.
type UpdateInput struct {
	Name           *string
	Description    *string
	Address        *types.Address
	ParkingType    *enums.ParkingType
	PaymentType    *enums.PaymentType
	OwnershipType  *enums.OwnershipType
	HourlyRate     *types.VehicleRates
	Capacity       *types.VehicleCounts
	Amenities      *[]string
	OperatingHours *types.OperatingHours
	IsApproved     *bool
}

// FromRequestInput is the data an approved new_parking_site request contributes.
type FromRequestInput struct {
	RequestID   uuid.UUID
	OwnerID     uuid.UUID
	Description string
	Location    types.GeographyPoint
	Address     types.Address
	Details     types.ParkingDetails
}

// ValidateDetails checks a lot description submitted with a request or a direct creation.
func ValidateDetails(d types.ParkingDetails) error {
	details := map[string]string{}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		details["name"] = "is required"
	} else if len(name) > maxNameLength {
		details["name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if d.Capacity.Car <= 0 {
		details["capacity.car"] = "must be greater than 0"
	}
	if d.Capacity.Bike < 0 || d.Capacity.BusTruck < 0 {
		details["capacity"] = "must not be negative"
	}
	if d.HourlyRate.HasNegative() {
		details["hourlyRate"] = "must not be negative"
	}
	if d.ParkingType != "" && !d.ParkingType.IsValid() {
		details["parkingType"] = "is invalid"
	}
	if d.PaymentType != "" && !d.PaymentType.IsValid() {
		details["paymentType"] = "is invalid"
	}
	if d.OwnershipType != "" && !d.OwnershipType.IsValid() {
		details["ownershipType"] = "is invalid"
	}
	if d.OperatingHours != nil {
		if err := d.OperatingHours.Validate(); err != nil {
			details["operatingHours"] = err.Error()
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid parking details").WithDetails(details)
	}
	return nil
}

func (in CreateInput) details() types.ParkingDetails {
	return types.ParkingDetails{
		Name:           in.Name,
		Capacity:       in.Capacity,
		ParkingType:    in.ParkingType,
		PaymentType:    in.PaymentType,
		OwnershipType:  in.OwnershipType,
		HourlyRate:     in.HourlyRate,
		Amenities:      in.Amenities,
		OperatingHours: in.OperatingHours,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*ParkingDTO, error) {
	if !actor.HasRole(enums.UserRoleOwner, enums.UserRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners and admins can register parking lots")
	}
	details := input.details()
	if err := ValidateDetails(details); err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if input.OwnerID != nil && *input.OwnerID != uuid.Nil && *input.OwnerID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can assign another owner")
		}
		ownerID = *input.OwnerID
	}

	location, address, err := s.resolveLocation(ctx, input)
	if err != nil {
		return nil, err
	}

	parking := buildParking(details, ownerID, location, address)
	parking.Description = trimmedPtr(input.Description)
	parking.IsApproved = true

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindUser(ctx, ownerID); err != nil {
			return notFoundOr(err, "owner not found", "load owner")
		}
		if err := repo.Create(ctx, parking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create parking")
		}
		if err := repo.LinkOwner(ctx, ownerID, parking.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link parking owner")
		}
		created, err := repo.FindByID(ctx, parking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload parking")
		}
		parking = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*parking)
	return &dto, nil
}

func (s *service) resolveLocation(ctx context.Context, input CreateInput) (types.GeographyPoint, types.Address, error) {
	var address types.Address
	if input.Address != nil {
		address = *input.Address
	}

	if placeID := strings.TrimSpace(input.PlaceID); placeID != "" {
		if s.places == nil {
			return types.GeographyPoint{}, address, pkgerrors.New(pkgerrors.CodeDependency, "place lookup unavailable")
		}
		place, err := s.places.ResolvePlace(ctx, placeID)
		if err != nil {
			return types.GeographyPoint{}, address, err
		}
		if input.Address == nil {
			address = place.Address()
		}
		point := place.Point()
		if input.Location != nil {
			point = *input.Location
		}
		return point, address, geo.ValidatePoint(point)
	}

	if input.Location == nil {
		return types.GeographyPoint{}, address, pkgerrors.New(pkgerrors.CodeInvalidLocation, "location or place id is required")
	}
	return *input.Location, address, geo.ValidatePoint(*input.Location)
}

func (s *service) CreateFromRequest(ctx context.Context, tx *gorm.DB, input FromRequestInput) (*models.Parking, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := ValidateDetails(input.Details); err != nil {
		return nil, err
	}
	if err := geo.ValidatePoint(input.Location); err != nil {
		return nil, err
	}

	parking := buildParking(input.Details, input.OwnerID, input.Location, input.Address)
	parking.Description = trimmedPtr(&input.Description)
	parking.IsApproved = true
	requestID := input.RequestID
	parking.SourceRequestID = &requestID

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, parking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create parking from request")
	}
	if err := repo.LinkOwner(ctx, input.OwnerID, parking.ID); err != nil {
		return nil, notFoundOr(err, "request owner not found", "link parking owner")
	}
	return parking, nil
}

func buildParking(d types.ParkingDetails, ownerID uuid.UUID, location types.GeographyPoint, address types.Address) *models.Parking {
	parkingType := d.ParkingType
	if parkingType == "" {
		parkingType = enums.ParkingTypeOpenSky
	}
	paymentType := d.PaymentType
	if paymentType == "" {
		paymentType = enums.PaymentTypeFree
		if d.HourlyRate.Car.IsPositive() || d.HourlyRate.Bike.IsPositive() || d.HourlyRate.BusTruck.IsPositive() {
			paymentType = enums.PaymentTypePaid
		}
	}
	ownershipType := d.OwnershipType
	if ownershipType == "" {
		ownershipType = enums.OwnershipTypePrivate
	}
	hours := types.DefaultOperatingHours()
	if d.OperatingHours != nil {
		hours = *d.OperatingHours
	}

	return &models.Parking{
		Name:             strings.TrimSpace(d.Name),
		Location:         location,
		Address:          address,
		ParkingType:      parkingType,
		PaymentType:      paymentType,
		OwnershipType:    ownershipType,
		RateCar:          d.HourlyRate.Car.Round(2),
		RateBike:         d.HourlyRate.Bike.Round(2),
		RateBusTruck:     d.HourlyRate.BusTruck.Round(2),
		CapacityCar:      d.Capacity.Car,
		CapacityBike:     d.Capacity.Bike,
		CapacityBusTruck: d.Capacity.BusTruck,
		Amenities:        pq.StringArray(cleanAmenities(d.Amenities)),
		OperatingHours:   hours,
		OwnerID:          ownerID,
		StaffIDs:         dbtypes.UUIDArray{},
		IsActive:         true,
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ParkingDTO, error) {
	parking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "parking not found", "load parking")
	}
	dto := FromModel(*parking)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[ParkingDTO], error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[ParkingDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list parkings")
	}
	return pagination.NewPage(toDTOs(rows), params, total), nil
}

func (s *service) ListMine(ctx context.Context, actor auth.Actor) ([]ParkingDTO, error) {
	if !actor.HasRole(enums.UserRoleOwner, enums.UserRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners can list their parking lots")
	}
	rows, err := s.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list owner parkings")
	}
	return toDTOs(rows), nil
}

func (s *service) Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyParkingDTO, error) {
	return s.nearest(ctx, point, radiusMeters, limit, false)
}

func (s *service) Available(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyParkingDTO, error) {
	return s.nearest(ctx, point, radiusMeters, limit, true)
}

func (s *service) nearest(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int, onlyAvailable bool) ([]NearbyParkingDTO, error) {
	if err := geo.ValidatePoint(point); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultSearchRadiusMeters
	}
	if radiusMeters > geo.MaxSearchRadiusMeters {
		radiusMeters = geo.MaxSearchRadiusMeters
	}
	if limit <= 0 {
		limit = defaultNearbyLimit
	}
	if limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}

	rows, err := s.repo.Nearest(ctx, NearestQuery{
		Point:         point,
		RadiusMeters:  radiusMeters,
		OnlyAvailable: onlyAvailable,
		Limit:         limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search nearby parkings")
	}
	return toNearbyDTOs(rows), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*ParkingDTO, error) {
	updates, capacities, err := s.updateColumns(actor, input)
	if err != nil {
		return nil, err
	}

	var updated *models.Parking
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		parking, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "parking not found", "load parking")
		}
		if !canManage(actor, parking) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can update this parking")
		}

		if len(updates) > 0 || len(capacities) > 0 {
			rows, err := repo.Update(ctx, id, updates, capacities)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update parking")
			}
			if rows == 0 {
				return capacityConflict(parking, capacities)
			}
		}

		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload parking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) updateColumns(actor auth.Actor, in UpdateInput) (map[string]any, map[enums.VehicleClass]int, error) {
	updates := map[string]any{}
	capacities := map[enums.VehicleClass]int{}
	invalid := map[string]string{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLength {
			invalid["name"] = fmt.Sprintf("must be 1-%d characters", maxNameLength)
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = trimmedPtr(in.Description)
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.ParkingType != nil {
		if !in.ParkingType.IsValid() {
			invalid["parkingType"] = "is invalid"
		}
		updates["parking_type"] = *in.ParkingType
	}
	if in.PaymentType != nil {
		if !in.PaymentType.IsValid() {
			invalid["paymentType"] = "is invalid"
		}
		updates["payment_type"] = *in.PaymentType
	}
	if in.OwnershipType != nil {
		if !in.OwnershipType.IsValid() {
			invalid["ownershipType"] = "is invalid"
		}
		updates["ownership_type"] = *in.OwnershipType
	}
	if in.HourlyRate != nil {
		if in.HourlyRate.HasNegative() {
			invalid["hourlyRate"] = "must not be negative"
		}
		updates["rate_car"] = in.HourlyRate.Car.Round(2)
		updates["rate_bike"] = in.HourlyRate.Bike.Round(2)
		updates["rate_bus_truck"] = in.HourlyRate.BusTruck.Round(2)
	}
	if in.Capacity != nil {
		if in.Capacity.Car <= 0 {
			invalid["capacity.car"] = "must be greater than 0"
		}
		if in.Capacity.Bike < 0 || in.Capacity.BusTruck < 0 {
			invalid["capacity"] = "must not be negative"
		}
		for _, class := range enums.VehicleClasses() {
			capacities[class] = in.Capacity.Get(class)
		}
	}
	if in.Amenities != nil {
		updates["amenities"] = pq.StringArray(cleanAmenities(*in.Amenities))
	}
	if in.OperatingHours != nil {
		if err := in.OperatingHours.Validate(); err != nil {
			invalid["operatingHours"] = err.Error()
		}
		updates["operating_hours"] = *in.OperatingHours
	}
	if in.IsApproved != nil {
		if !actor.IsAdmin() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change approval")
		}
		updates["is_approved"] = *in.IsApproved
	}

	if len(invalid) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid parking update").WithDetails(invalid)
	}
	return updates, capacities, nil
}

func capacityConflict(parking *models.Parking, capacities map[enums.VehicleClass]int) error {
	details := map[string]any{}
	for class, capacity := range capacities {
		if current := parking.Count(class); current > capacity {
			details[string(class)] = map[string]int{"currentCount": current, "capacity": capacity}
		}
	}
	return pkgerrors.New(pkgerrors.CodeOccupancyOutOfBounds, "capacity cannot be lower than the current occupancy").
		WithDetails(details)
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		parking, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "parking not found", "load parking")
		}
		if !canManage(actor, parking) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can delete this parking")
		}
		if _, err := repo.SetActive(ctx, id, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate parking")
		}
		return nil
	})
}

func (s *service) AddStaff(ctx context.Context, actor auth.Actor, id, staffID uuid.UUID) (*ParkingDTO, error) {
	return s.changeStaff(ctx, actor, id, staffID, true)
}

func (s *service) RemoveStaff(ctx context.Context, actor auth.Actor, id, staffID uuid.UUID) (*ParkingDTO, error) {
	return s.changeStaff(ctx, actor, id, staffID, false)
}

func (s *service) changeStaff(ctx context.Context, actor auth.Actor, id, staffID uuid.UUID, add bool) (*ParkingDTO, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff user id is required")
	}

	var updated *models.Parking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		parking, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "parking not found", "load parking")
		}
		if !canManage(actor, parking) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can manage staff")
		}

		staff := parking.StaffIDs.Without(staffID)
		if add {
			user, err := repo.FindUser(ctx, staffID)
			if err != nil {
				return notFoundOr(err, "staff user not found", "load staff user")
			}
			if !user.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "staff user is deactivated")
			}
			staff = parking.StaffIDs.With(staffID)
		}

		if err := repo.SetStaff(ctx, id, staff); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update parking staff")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload parking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) IncrementCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*OccupancyDTO, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return s.mutateCount(ctx, actor, id, class, opIncrement, amount)
}

func (s *service) DecrementCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, amount int) (*OccupancyDTO, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return s.mutateCount(ctx, actor, id, class, opDecrement, amount)
}

func (s *service) SetCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, count int) (*OccupancyDTO, error) {
	if count < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOccupancyOutOfBounds, "count must not be negative").
			WithDetails(map[string]any{"count": count})
	}
	return s.mutateCount(ctx, actor, id, class, opSet, count)
}

func (s *service) mutateCount(ctx context.Context, actor auth.Actor, id uuid.UUID, class enums.VehicleClass, op string, value int) (*OccupancyDTO, error) {
	if !class.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle type").
			WithDetails(map[string]any{"vehicleType": class})
	}

	var updated *models.Parking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		parking, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "parking not found", "load parking")
		}
		if !canOperate(actor, parking) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner, staff or an admin can update vehicle counts")
		}
		if !parking.IsActive {
			return pkgerrors.New(pkgerrors.CodeLotUnavailable, "parking is not active")
		}

		var rows int64
		switch op {
		case opIncrement:
			rows, err = repo.AdjustCount(ctx, id, class, value, s.strict)
		case opDecrement:
			rows, err = repo.AdjustCount(ctx, id, class, -value, s.strict)
		default:
			rows, err = repo.SetCount(ctx, id, class, value)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vehicle count")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeOccupancyOutOfBounds, "vehicle count out of bounds").
				WithDetails(map[string]any{
					"vehicleType":  class,
					"currentCount": parking.Count(class),
					"capacity":     parking.Capacity(class),
					"requested":    value,
					"operation":    op,
				})
		}

		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload parking")
		}
		return nil
	})
	if err != nil {
		s.m.IncOccupancyUpdate(op, string(class), resultLabel(err))
		return nil, err
	}
	s.m.IncOccupancyUpdate(op, string(class), "ok")

	occupancy := occupancyFor(*updated, class, s.now())
	s.publish(ctx, occupancy)
	return &occupancy, nil
}

func (s *service) publish(ctx context.Context, update OccupancyDTO) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishCountUpdate(ctx, update); err != nil && s.logg != nil {
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"parking_id": update.ParkingID.String(),
			"error":      err.Error(),
		})
		s.logg.Warn(warnCtx, "parking.count_publish_failed")
	}
}

func canManage(actor auth.Actor, parking *models.Parking) bool {
	return actor.IsAdmin() || (actor.UserID != uuid.Nil && parking.OwnerID == actor.UserID)
}

func canOperate(actor auth.Actor, parking *models.Parking) bool {
	return canManage(actor, parking) || parking.IsStaff(actor.UserID)
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}

func resultLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
