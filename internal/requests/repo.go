package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

// ListFilter narrows request listings. Zero fields are ignored.
type ListFilter struct {
	Status *enums.RequestStatus
	Type   *enums.RequestType
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// Review is the admin decision applied to a pending request.
type Review struct {
	Status       enums.RequestStatus
	ReviewerID   uuid.UUID
	AdminNotes   *string
	CoinsAwarded int64
	At           time.Time
}

// NearbyRow is a request plus its distance from the query point.
type NearbyRow struct {
	models.ParkingRequest `gorm:"embedded"`
	DistanceMeters        float64 `gorm:"column:distance_meters"`
}

// CountRow is one bucket of a grouped count.
type CountRow struct {
	Bucket string `gorm:"column:bucket"`
	Total  int64  `gorm:"column:total"`
}

// Repository persists parking requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.ParkingRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ParkingRequest, error)
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]models.ParkingRequest, int64, error)
	Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyRow, error)
	// UpdatePending applies owner edits while the request is still pending.
	UpdatePending(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error)
	// Review moves a pending request to a terminal status. Zero rows means it was not pending.
	Review(ctx context.Context, id uuid.UUID, review Review) (int64, error)
	SetCreatedParking(ctx context.Context, id, parkingID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, onlyPending bool) (int64, error)
	CountBy(ctx context.Context, column string) ([]CountRow, error)
	SumCoinsAwarded(ctx context.Context) (int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository binds a GORM DB to request persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Create(ctx context.Context, req *models.ParkingRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ParkingRequest, error) {
	var req models.ParkingRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]models.ParkingRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ParkingRequest{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		q = q.Where("request_type = ?", *filter.Type)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ParkingRequest
	err := q.Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

const nearbySQL = `
SELECT r.*, ST_Distance(r.location, q.point) AS distance_meters
FROM parking_requests r,
     (SELECT ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography AS point) q
WHERE r.status <> 'denied'
  AND ST_DWithin(r.location, q.point, ?)
ORDER BY r.location <-> q.point
LIMIT ?`

func (r *repository) Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyRow, error) {
	var rows []NearbyRow
	err := r.db.WithContext(ctx).
		Raw(nearbySQL, point.Lng, point.Lat, radiusMeters, limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) UpdatePending(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = r.now()
	res := r.db.WithContext(ctx).Model(&models.ParkingRequest{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, enums.RequestStatusPending).
		UpdateColumns(values)
	return res.RowsAffected, res.Error
}

func (r *repository) Review(ctx context.Context, id uuid.UUID, review Review) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ParkingRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		UpdateColumns(map[string]any{
			"status":        review.Status,
			"reviewed_by":   review.ReviewerID,
			"reviewed_at":   review.At,
			"admin_notes":   review.AdminNotes,
			"coins_awarded": review.CoinsAwarded,
			"updated_at":    review.At,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SetCreatedParking(ctx context.Context, id, parkingID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ParkingRequest{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"created_parking_id": parkingID, "updated_at": r.now()}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, onlyPending bool) (int64, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if onlyPending {
		q = q.Where("status = ?", enums.RequestStatusPending)
	}
	res := q.Delete(&models.ParkingRequest{})
	return res.RowsAffected, res.Error
}

// CountBy groups requests by status or request_type.
func (r *repository) CountBy(ctx context.Context, column string) ([]CountRow, error) {
	var rows []CountRow
	err := r.db.WithContext(ctx).Model(&models.ParkingRequest{}).
		Select(column + " AS bucket, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) SumCoinsAwarded(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ParkingRequest{}).
		Select("COALESCE(SUM(coins_awarded), 0)").
		Scan(&total).Error
	return total, err
}
