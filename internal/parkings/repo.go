package parkings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/parkfinder-backend/pkg/db/types"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// ListFilter narrows the public lot listing.
type ListFilter struct {
	ParkingType *enums.ParkingType
	PaymentType *enums.PaymentType
}

// NearestQuery describes a radius search around a point.
type NearestQuery struct {
	Point         types.GeographyPoint
	RadiusMeters  float64
	OnlyAvailable bool
	Limit         int
}

// NearbyRow is a lot plus its distance from the query point.
type NearbyRow struct {
	models.Parking `gorm:"embedded"`
	DistanceMeters float64 `gorm:"column:distance_meters"`
}

// Repository persists lots and their occupancy counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, parking *models.Parking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Parking, error)
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]models.Parking, int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Parking, error)
	Nearest(ctx context.Context, q NearestQuery) ([]NearbyRow, error)
	// AdjustCount moves a class counter by delta. Strict mode only touches the row when the
	// result stays within [0, capacity]; lenient mode clamps into that range.
	AdjustCount(ctx context.Context, id uuid.UUID, class enums.VehicleClass, delta int, strict bool) (int64, error)
	// SetCount writes an absolute count when it does not exceed the class capacity.
	SetCount(ctx context.Context, id uuid.UUID, class enums.VehicleClass, count int) (int64, error)
	// Update applies column updates. New capacities only apply when the current count fits.
	Update(ctx context.Context, id uuid.UUID, updates map[string]any, capacities map[enums.VehicleClass]int) (int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error)
	SetStaff(ctx context.Context, id uuid.UUID, staff dbtypes.UUIDArray) error
	// LinkOwner records the lot on the owner's profile and promotes plain users to owner.
	LinkOwner(ctx context.Context, userID, parkingID uuid.UUID) error
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository binds a GORM DB to lot persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func countColumns(class enums.VehicleClass) (count, capacity string, err error) {
	switch class {
	case enums.VehicleClassCar:
		return "count_car", "capacity_car", nil
	case enums.VehicleClassBike:
		return "count_bike", "capacity_bike", nil
	case enums.VehicleClassBusTruck:
		return "count_bus_truck", "capacity_bus_truck", nil
	default:
		return "", "", fmt.Errorf("unknown vehicle class %q", class)
	}
}

func (r *repository) Create(ctx context.Context, parking *models.Parking) error {
	if parking.ID == uuid.Nil {
		parking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(parking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Parking, error) {
	var parking models.Parking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&parking).Error; err != nil {
		return nil, err
	}
	return &parking, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]models.Parking, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("is_active = ? AND is_approved = ?", true, true)
	if filter.ParkingType != nil {
		q = q.Where("parking_type = ?", *filter.ParkingType)
	}
	if filter.PaymentType != nil {
		q = q.Where("payment_type = ?", *filter.PaymentType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Parking
	if err := q.Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Parking, error) {
	var rows []models.Parking
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

const nearestSQL = `
SELECT p.*, ST_Distance(p.location, q.point) AS distance_meters
FROM parkings p,
     (SELECT ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography AS point) q
WHERE p.is_active AND p.is_approved
  AND ST_DWithin(p.location, q.point, ?)
  %s
ORDER BY p.location <-> q.point
LIMIT ?`

func (r *repository) Nearest(ctx context.Context, q NearestQuery) ([]NearbyRow, error) {
	availability := ""
	if q.OnlyAvailable {
		availability = "AND p.count_car < p.capacity_car"
	}

	var rows []NearbyRow
	err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(nearestSQL, availability), q.Point.Lng, q.Point.Lat, q.RadiusMeters, q.Limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) AdjustCount(ctx context.Context, id uuid.UUID, class enums.VehicleClass, delta int, strict bool) (int64, error) {
	countCol, capCol, err := countColumns(class)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return 0, fmt.Errorf("delta must be non-zero")
	}

	q := r.db.WithContext(ctx).Model(&models.Parking{}).Where("id = ?", id)
	var expr clause
	switch {
	case delta > 0 && strict:
		q = q.Where(countCol+" + ? <= "+capCol, delta)
		expr = clause{countCol + " + ?", []any{delta}}
	case delta > 0:
		expr = clause{
			"CASE WHEN " + countCol + " + ? > " + capCol + " THEN " + capCol + " ELSE " + countCol + " + ? END",
			[]any{delta, delta},
		}
	case strict:
		q = q.Where(countCol+" - ? >= 0", -delta)
		expr = clause{countCol + " - ?", []any{-delta}}
	default:
		expr = clause{
			"CASE WHEN " + countCol + " - ? < 0 THEN 0 ELSE " + countCol + " - ? END",
			[]any{-delta, -delta},
		}
	}

	res := q.UpdateColumns(map[string]any{
		countCol:     gorm.Expr(expr.sql, expr.args...),
		"updated_at": r.now(),
	})
	return res.RowsAffected, res.Error
}

type clause struct {
	sql  string
	args []any
}

func (r *repository) SetCount(ctx context.Context, id uuid.UUID, class enums.VehicleClass, count int) (int64, error) {
	countCol, capCol, err := countColumns(class)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("id = ? AND "+capCol+" >= ?", id, count).
		UpdateColumns(map[string]any{countCol: count, "updated_at": r.now()})
	return res.RowsAffected, res.Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any, capacities map[enums.VehicleClass]int) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Parking{}).Where("id = ?", id)
	values := make(map[string]any, len(updates)+len(capacities)+1)
	for k, v := range updates {
		values[k] = v
	}
	for class, capacity := range capacities {
		countCol, capCol, err := countColumns(class)
		if err != nil {
			return 0, err
		}
		q = q.Where(countCol+" <= ?", capacity)
		values[capCol] = capacity
	}
	values["updated_at"] = r.now()

	res := q.UpdateColumns(values)
	return res.RowsAffected, res.Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_active": active, "updated_at": r.now()})
	return res.RowsAffected, res.Error
}

func (r *repository) SetStaff(ctx context.Context, id uuid.UUID, staff dbtypes.UUIDArray) error {
	if staff == nil {
		staff = dbtypes.UUIDArray{}
	}
	return r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"staff_ids": staff, "updated_at": r.now()}).Error
}

func (r *repository) LinkOwner(ctx context.Context, userID, parkingID uuid.UUID) error {
	user, err := r.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.ParkingIDs.Contains(parkingID) && user.Role != enums.UserRoleUser {
		return nil
	}

	updates := map[string]any{"parking_ids": user.ParkingIDs.With(parkingID), "updated_at": r.now()}
	if user.Role == enums.UserRoleUser {
		updates["role"] = enums.UserRoleOwner
	}
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(updates).Error
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
