package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
)

const (
	defaultCreditDescription = "Coins credited"
	defaultDebitDescription  = "Coins debited"
	recentTransactionsLimit  = 5
)

// Service exposes wallet credits, debits and reads. Credits and debits are atomic: the balance
// change and its transaction row are written in one database transaction.
type Service interface {
	// WithTx binds the service to an outer transaction so callers can compose wallet effects
	// with their own writes.
	WithTx(tx *gorm.DB) Service
	Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[TransactionDTO], error)
	Summary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// boundTx runs callbacks on an already-open transaction.
type boundTx struct {
	tx *gorm.DB
}

func (b boundTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(b.tx)
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService wires the wallet ledger. metrics may be nil.
func NewService(repo Repository, tx txRunner, m *metrics.Metrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{
		repo:    s.repo.WithTx(tx),
		tx:      boundTx{tx: tx},
		metrics: s.metrics,
		now:     s.now,
	}
}

func (s *service) Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if err := input.validate(); err != nil {
		s.metrics.IncWalletOp(string(enums.TransactionKindCredit), "invalid")
		return nil, err
	}

	var created *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.AddBalance(ctx, input.UserID, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit wallet")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		created, err = s.appendTransaction(ctx, repo, input, enums.TransactionKindCredit, defaultCreditDescription)
		return err
	})
	if err != nil {
		s.metrics.IncWalletOp(string(enums.TransactionKindCredit), resultLabel(err))
		return nil, err
	}
	s.metrics.IncWalletOp(string(enums.TransactionKindCredit), "ok")
	return created, nil
}

func (s *service) Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if err := input.validate(); err != nil {
		s.metrics.IncWalletOp(string(enums.TransactionKindDebit), "invalid")
		return nil, err
	}

	var created *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.SubtractBalanceIfSufficient(ctx, input.UserID, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit wallet")
		}
		if rows == 0 {
			balance, err := repo.Balance(ctx, input.UserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet balance")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance").
				WithDetails(map[string]any{"balance": balance, "requested": input.Amount})
		}
		created, err = s.appendTransaction(ctx, repo, input, enums.TransactionKindDebit, defaultDebitDescription)
		return err
	})
	if err != nil {
		s.metrics.IncWalletOp(string(enums.TransactionKindDebit), resultLabel(err))
		return nil, err
	}
	s.metrics.IncWalletOp(string(enums.TransactionKindDebit), "ok")
	return created, nil
}

func (s *service) appendTransaction(ctx context.Context, repo Repository, input EntryInput, kind enums.TransactionKind, fallback string) (*models.WalletTransaction, error) {
	balance, err := repo.Balance(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet balance")
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fallback
	}

	txn := &models.WalletTransaction{
		UserID:       input.UserID,
		Kind:         kind,
		Amount:       input.Amount,
		Description:  description,
		BalanceAfter: balance,
		CreatedAt:    s.now(),
	}
	if input.Reference != nil {
		refType := string(input.Reference.Type)
		refID := input.Reference.ID
		txn.ReferenceType = &refType
		txn.ReferenceID = &refID
	}

	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet transaction")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet balance")
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet history")
	}
	return toTransactionDTOs(rows), nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[TransactionDTO], error) {
	if userID == uuid.Nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListTransactions(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	return pagination.NewPage(toTransactionDTOs(rows), params, total), nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.repo.ListTransactions(ctx, userID, 0, recentTransactionsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	return &SummaryDTO{
		Balance:            balance,
		RecentTransactions: toTransactionDTOs(rows),
	}, nil
}

func resultLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}
