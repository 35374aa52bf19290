package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

// WalletTransaction is an append-only record of a balance change.
type WalletTransaction struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Kind          enums.TransactionKind `gorm:"column:kind;type:text;not null"`
	Amount        int64                 `gorm:"column:amount;not null"`
	Description   string                `gorm:"column:description;not null"`
	BalanceAfter  int64                 `gorm:"column:balance_after;not null"`
	ReferenceType *string               `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID            `gorm:"column:reference_id;type:uuid"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	// Seq is assigned by the database on insert and orders a user's history.
	Seq int64 `gorm:"column:seq;->"`
}
