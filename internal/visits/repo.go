package visits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

// Repository persists visits and reads the lots they refer to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, visit *models.Visit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Visit, int64, error)
	// MarkVerified flips an unverified visit. It reports zero rows for visits already verified.
	MarkVerified(ctx context.Context, id uuid.UUID, method enums.VerificationMethod) (int64, error)
	FindParking(ctx context.Context, id uuid.UUID) (*models.Parking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to visit persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, visit *models.Visit) error {
	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(visit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&visit).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Visit, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Visit{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Visit
	err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *repository) MarkVerified(ctx context.Context, id uuid.UUID, method enums.VerificationMethod) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Visit{}).
		Where("id = ? AND is_verified = ?", id, false).
		UpdateColumns(map[string]any{"is_verified": true, "verification_method": method})
	return res.RowsAffected, res.Error
}

func (r *repository) FindParking(ctx context.Context, id uuid.UUID) (*models.Parking, error) {
	var parking models.Parking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&parking).Error; err != nil {
		return nil, err
	}
	return &parking, nil
}
