package visits

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/wallet"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
)

const (
	cooldownAction    = "checkin"
	rewardDescription = "Parking visit reward"
	defaultRadius     = 500
)

// CooldownStore is the Redis surface used to gate repeat check-ins.
type CooldownStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CooldownKey(action, userID, subjectID string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service verifies geofenced check-ins and rewards them.
type Service interface {
	CheckIn(ctx context.Context, userID uuid.UUID, input CheckInInput) (*CheckInResult, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[VisitDTO], error)
	Verify(ctx context.Context, actor auth.Actor, visitID uuid.UUID) (*VisitDTO, error)
}

// Options carries the check-in policy and optional collaborators.
type Options struct {
	Policy   config.CheckInConfig
	Cooldown CooldownStore
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   wallet.Service
	policy   config.CheckInConfig
	cooldown CooldownStore
	m        *metrics.Metrics
	logg     *logger.Logger
}

// NewService wires the check-in verifier. A zero radius falls back to 500 m; a zero reward
// records the visit without a wallet credit.
func NewService(repo Repository, tx txRunner, ledger wallet.Service, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("visit repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	policy := opts.Policy
	if policy.RadiusMeters <= 0 {
		policy.RadiusMeters = defaultRadius
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		policy:   policy,
		cooldown: opts.Cooldown,
		m:        opts.Metrics,
		logg:     opts.Logger,
	}, nil
}

func (s *service) CheckIn(ctx context.Context, userID uuid.UUID, input CheckInInput) (*CheckInResult, error) {
	result, err := s.checkIn(ctx, userID, input)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
			s.m.IncCheckIn(metrics.OutcomeRejected, string(typed.Code()))
		} else {
			s.m.IncCheckIn(metrics.OutcomeError, "")
		}
		return nil, err
	}
	s.m.IncCheckIn(metrics.OutcomeAccepted, "")
	return result, nil
}

func (s *service) checkIn(ctx context.Context, userID uuid.UUID, input CheckInInput) (*CheckInResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidLocation, "location is required")
	}
	if err := geo.ValidatePoint(*input.Location); err != nil {
		return nil, err
	}
	if input.ParkingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parking id is required")
	}

	parking, err := s.repo.FindParking(ctx, input.ParkingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parking")
	}
	if !parking.IsActive || !parking.IsApproved {
		return nil, pkgerrors.New(pkgerrors.CodeLotUnavailable, "parking is not available for check-in")
	}

	distance := geo.Haversine(*input.Location, parking.Location)
	if math.IsNaN(distance) {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfRange, "distance to the parking location could not be determined").
			WithDetails(map[string]any{"threshold_meters": s.policy.RadiusMeters})
	}
	if distance > s.policy.RadiusMeters {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfRange, "you are too far from the parking location").
			WithDetails(map[string]any{
				"distance_meters":  roundMeters(distance),
				"threshold_meters": s.policy.RadiusMeters,
			})
	}
	if parking.IsFull() {
		return nil, pkgerrors.New(pkgerrors.CodeLotUnavailable, "parking is full")
	}

	release, err := s.acquireCooldown(ctx, userID, parking.ID)
	if err != nil {
		return nil, err
	}

	visit := &models.Visit{
		ID:                 uuid.New(),
		UserID:             userID,
		ParkingID:          parking.ID,
		ReportedLocation:   *input.Location,
		DistanceMeters:     roundMeters(distance),
		IsVerified:         true,
		VerificationMethod: enums.VerificationMethodGeofence,
		CoinsEarned:        s.policy.RewardCoins,
	}

	var balance int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, visit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record visit")
		}
		ledger := s.ledger.WithTx(tx)
		if s.policy.RewardCoins <= 0 {
			var err error
			balance, err = ledger.Balance(ctx, userID)
			return err
		}
		entry, err := ledger.Credit(ctx, wallet.EntryInput{
			UserID:      userID,
			Amount:      s.policy.RewardCoins,
			Description: fmt.Sprintf("%s: %s", rewardDescription, parking.Name),
			Reference:   &wallet.Reference{Type: enums.ReferenceTypeVisit, ID: visit.ID},
		})
		if err != nil {
			return err
		}
		balance = entry.BalanceAfter
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":         userID.String(),
			"parking_id":      parking.ID.String(),
			"distance_meters": visit.DistanceMeters,
			"coins":           visit.CoinsEarned,
		})
		s.logg.Info(logCtx, "visit.checked_in")
	}

	stored, err := s.repo.FindByID(ctx, visit.ID)
	if err != nil {
		stored = visit
	}
	return &CheckInResult{Visit: FromModel(*stored), NewBalance: balance}, nil
}

// acquireCooldown claims the (user, lot) window. The returned func releases it again.
func (s *service) acquireCooldown(ctx context.Context, userID, parkingID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.cooldown == nil || s.policy.Cooldown <= 0 {
		return noop, nil
	}

	key := s.cooldown.CooldownKey(cooldownAction, userID.String(), parkingID.String())
	ok, err := s.cooldown.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.policy.Cooldown)
	if err != nil {
		return noop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check-in cooldown unavailable")
	}
	if !ok {
		return noop, pkgerrors.New(pkgerrors.CodeVisitCooldown, "you have already checked in at this parking recently").
			WithDetails(map[string]any{"cooldown_seconds": int64(s.policy.Cooldown / time.Second)})
	}

	return func() {
		if err := s.cooldown.Del(context.WithoutCancel(ctx), key); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "visit.cooldown_release_failed")
		}
	}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[VisitDTO], error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListByUser(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[VisitDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list visits")
	}
	items := make([]VisitDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Verify(ctx context.Context, actor auth.Actor, visitID uuid.UUID) (*VisitDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can verify visits")
	}

	var visit *models.Visit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.MarkVerified(ctx, visitID, enums.VerificationMethodManual); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify visit")
		}
		var err error
		visit, err = repo.FindByID(ctx, visitID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load visit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*visit)
	return &dto, nil
}

func roundMeters(v float64) float64 {
	return math.Round(v*100) / 100
}
