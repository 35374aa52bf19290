package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
)

// Repository manages wallet balances on users and the append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AddBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	SubtractBalanceIfSufficient(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.WalletTransaction, int64, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AddBalance increments the balance and returns the number of rows touched (0 for unknown users).
func (r *repository) AddBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"wallet_balance": gorm.Expr("wallet_balance + ?", amount),
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// SubtractBalanceIfSufficient decrements only when the balance covers amount. Zero rows means
// either an unknown user or an insufficient balance; the row is left untouched in both cases.
func (r *repository) SubtractBalanceIfSufficient(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		UpdateColumns(map[string]any{
			"wallet_balance": gorm.Expr("wallet_balance - ?", amount),
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var row struct {
		WalletBalance int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("wallet_balance").
		Where("id = ?", userID).
		Take(&row).Error
	return row.WalletBalance, err
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.WalletTransaction, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) History(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
