package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/wallet"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
)

const maxNameLength = 100

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)

// ValidPhone reports whether phone looks like a dialable number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Service covers profile reads and edits, the wallet view and admin user management.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error)
	Wallet(ctx context.Context, userID uuid.UUID) (*wallet.SummaryDTO, error)
	WalletTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[wallet.TransactionDTO], error)
	ListUsers(ctx context.Context, actor auth.Actor, role *enums.UserRole, params pagination.Params) (pagination.Page[UserDTO], error)
	Deactivate(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*UserDTO, error)
}

type service struct {
	repo   *Repository
	ledger wallet.Service
}

// NewService wires the users service.
func NewService(repo *Repository, ledger wallet.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &service{repo: repo, ledger: ledger}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error) {
	updates := map[string]any{}
	invalid := map[string]string{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			invalid["name"] = fmt.Sprintf("must be 1-%d characters", maxNameLength)
		}
		updates["name"] = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			updates["phone"] = nil
		} else if !ValidPhone(phone) {
			invalid["phone"] = "is not a valid phone number"
		} else {
			updates["phone"] = phone
		}
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid profile").WithDetails(invalid)
	}
	if input.Location != nil {
		if err := geo.ValidatePoint(*input.Location); err != nil {
			return nil, err
		}
		updates["location"] = *input.Location
	}

	if len(updates) > 0 {
		rows, err := s.repo.UpdateFields(ctx, userID, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}
		if rows == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
	}
	return s.GetProfile(ctx, userID)
}

func (s *service) Wallet(ctx context.Context, userID uuid.UUID) (*wallet.SummaryDTO, error) {
	return s.ledger.Summary(ctx, userID)
}

func (s *service) WalletTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[wallet.TransactionDTO], error) {
	return s.ledger.ListTransactions(ctx, userID, params)
}

func (s *service) ListUsers(ctx context.Context, actor auth.Actor, role *enums.UserRole, params pagination.Params) (pagination.Page[UserDTO], error) {
	if !actor.IsAdmin() {
		return pagination.Page[UserDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if role != nil && !role.IsValid() {
		return pagination.Page[UserDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}

	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, role, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if actor.UserID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins cannot deactivate themselves")
	}
	rows, err := s.repo.SetActive(ctx, userID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.GetProfile(ctx, userID)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
