package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
)

// Reference links a wallet transaction to the entity that caused it.
type Reference struct {
	Type enums.ReferenceType
	ID   uuid.UUID
}

// EntryInput describes a single credit or debit.
type EntryInput struct {
	UserID      uuid.UUID
	Amount      int64
	Description string
	Reference   *Reference
}

func (in EntryInput) validate() error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if in.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amount": in.Amount})
	}
	return nil
}

// TransactionDTO is the wire form of a wallet transaction.
type TransactionDTO struct {
	ID            uuid.UUID             `json:"id"`
	Type          enums.TransactionKind `json:"type"`
	Amount        int64                 `json:"amount"`
	Description   string                `json:"description"`
	BalanceAfter  int64                 `json:"balanceAfter"`
	ReferenceType *string               `json:"referenceType,omitempty"`
	ReferenceID   *uuid.UUID            `json:"referenceId,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// SummaryDTO is the wallet overview shown on the profile.
type SummaryDTO struct {
	Balance            int64            `json:"balance"`
	RecentTransactions []TransactionDTO `json:"recentTransactions"`
}

// FromModel maps a persisted transaction.
func FromModel(m models.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:            m.ID,
		Type:          m.Kind,
		Amount:        m.Amount,
		Description:   m.Description,
		BalanceAfter:  m.BalanceAfter,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Timestamp:     m.CreatedAt,
	}
}

func toTransactionDTOs(rows []models.WalletTransaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
