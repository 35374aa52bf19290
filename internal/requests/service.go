package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/parkings"
	"github.com/angelmondragon/parkfinder-backend/internal/wallet"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/pagination"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxImages            = 10
	maxCoinsAwarded      = 10000
	defaultNearbyLimit   = 50
)

// ParkingCreator promotes an approved request into a lot inside an open transaction.
type ParkingCreator interface {
	CreateFromRequest(ctx context.Context, tx *gorm.DB, input parkings.FromRequestInput) (*models.Parking, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the request moderation workflow.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*RequestDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*RequestDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*RequestDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, input ApproveInput) (*RequestDTO, error)
	Deny(ctx context.Context, actor auth.Actor, id uuid.UUID, adminNotes *string) (*RequestDTO, error)
	ListPending(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[RequestDTO], error)
	ListApproved(ctx context.Context, params pagination.Params) (pagination.Page[RequestDTO], error)
	ListAll(ctx context.Context, actor auth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[RequestDTO], error)
	ListMine(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[RequestDTO], error)
	Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyRequestDTO, error)
	Statistics(ctx context.Context, actor auth.Actor) (*StatisticsDTO, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   wallet.Service
	parkings ParkingCreator
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the moderation workflow.
func NewService(repo Repository, tx txRunner, ledger wallet.Service, creator ParkingCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if creator == nil {
		return nil, fmt.Errorf("parking creator required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		parkings: creator,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*RequestDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	requestType, err := enums.ParseRequestType(input.RequestType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request type").
			WithDetails(map[string]any{"requestType": input.RequestType})
	}

	invalid := map[string]string{}
	title := strings.TrimSpace(input.Title)
	checkText(invalid, "title", title, maxTitleLength)
	description := strings.TrimSpace(input.Description)
	checkText(invalid, "description", description, maxDescriptionLength)
	images := cleanImages(input.Images)
	if len(images) > maxImages {
		invalid["images"] = fmt.Sprintf("at most %d images", maxImages)
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request").WithDetails(invalid)
	}

	if input.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidLocation, "location is required")
	}
	if err := geo.ValidatePoint(*input.Location); err != nil {
		return nil, err
	}

	details, err := detailsFor(requestType, input.ParkingDetails)
	if err != nil {
		return nil, err
	}

	req := &models.ParkingRequest{
		UserID:         actor.UserID,
		RequestType:    requestType,
		Title:          title,
		Description:    description,
		Location:       *input.Location,
		ParkingDetails: details,
		Images:         pq.StringArray(images),
		Status:         enums.RequestStatusPending,
	}
	if input.Address != nil {
		req.Address = *input.Address
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create request")
	}
	return s.load(ctx, s.repo, req.ID)
}

// detailsFor enforces that lot details accompany new_parking_site requests only.
func detailsFor(requestType enums.RequestType, details *types.ParkingDetails) (*types.ParkingDetails, error) {
	if requestType != enums.RequestTypeNewParkingSite {
		return nil, nil
	}
	if details == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parking details are required for new parking site requests").
			WithDetails(map[string]string{"parkingDetails": "is required"})
	}
	if err := parkings.ValidateDetails(*details); err != nil {
		return nil, err
	}
	cleaned := *details
	cleaned.Name = strings.TrimSpace(cleaned.Name)
	return &cleaned, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*RequestDTO, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !actor.IsAdmin() && req.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only view your own requests")
	}
	dto := FromModel(*req)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*RequestDTO, error) {
	var result *RequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		if current.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only update your own requests")
		}
		if current.Status != enums.RequestStatusPending {
			return invalidTransition(current.Status, "update")
		}

		updates, err := updateColumns(current.RequestType, input)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			rows, err := repo.UpdatePending(ctx, id, actor.UserID, updates)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update request")
			}
			if rows == 0 {
				return s.transitionError(ctx, repo, id, "update")
			}
		}
		result, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func updateColumns(requestType enums.RequestType, in UpdateInput) (map[string]any, error) {
	updates := map[string]any{}
	invalid := map[string]string{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		checkText(invalid, "title", title, maxTitleLength)
		updates["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		checkText(invalid, "description", description, maxDescriptionLength)
		updates["description"] = description
	}
	if in.Images != nil {
		images := cleanImages(*in.Images)
		if len(images) > maxImages {
			invalid["images"] = fmt.Sprintf("at most %d images", maxImages)
		}
		updates["images"] = pq.StringArray(images)
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request update").WithDetails(invalid)
	}

	if in.Location != nil {
		if err := geo.ValidatePoint(*in.Location); err != nil {
			return nil, err
		}
		updates["location"] = *in.Location
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.ParkingDetails != nil {
		if requestType != enums.RequestTypeNewParkingSite {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parking details only apply to new parking site requests")
		}
		details, err := detailsFor(requestType, in.ParkingDetails)
		if err != nil {
			return nil, err
		}
		updates["parking_details"] = *details
	}
	return updates, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		admin := actor.IsAdmin()
		if !admin {
			if current.UserID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "you can only delete your own requests")
			}
			if current.Status != enums.RequestStatusPending {
				return invalidTransition(current.Status, "delete")
			}
		}

		rows, err := repo.Delete(ctx, id, !admin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete request")
		}
		if rows == 0 {
			return s.transitionError(ctx, repo, id, "delete")
		}
		return nil
	})
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, input ApproveInput) (*RequestDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can approve requests")
	}
	if input.CoinsAwarded < 0 || input.CoinsAwarded > maxCoinsAwarded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coins awarded out of range").
			WithDetails(map[string]any{"coinsAwarded": input.CoinsAwarded, "max": maxCoinsAwarded})
	}

	var result *RequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.Review(ctx, id, Review{
			Status:       enums.RequestStatusApproved,
			ReviewerID:   actor.UserID,
			AdminNotes:   trimmedPtr(input.AdminNotes),
			CoinsAwarded: input.CoinsAwarded,
			At:           s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve request")
		}
		if rows == 0 {
			return s.transitionError(ctx, repo, id, "approve")
		}

		req, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload request")
		}

		if input.CoinsAwarded > 0 {
			_, err := s.ledger.WithTx(tx).Credit(ctx, wallet.EntryInput{
				UserID:      req.UserID,
				Amount:      input.CoinsAwarded,
				Description: "Reward for approved request: " + req.Title,
				Reference:   &wallet.Reference{Type: enums.ReferenceTypeRequest, ID: req.ID},
			})
			if err != nil {
				return err
			}
		}

		if req.RequestType == enums.RequestTypeNewParkingSite {
			if req.ParkingDetails == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "request has no parking details")
			}
			lot, err := s.parkings.CreateFromRequest(ctx, tx, parkings.FromRequestInput{
				RequestID:   req.ID,
				OwnerID:     req.UserID,
				Description: req.Description,
				Location:    req.Location,
				Address:     req.Address,
				Details:     *req.ParkingDetails,
			})
			if err != nil {
				return err
			}
			if err := repo.SetCreatedParking(ctx, req.ID, lot.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record created parking")
			}
		}

		result, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logReview(ctx, actor, result, "request.approved")
	return result, nil
}

func (s *service) Deny(ctx context.Context, actor auth.Actor, id uuid.UUID, adminNotes *string) (*RequestDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can deny requests")
	}

	var result *RequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.Review(ctx, id, Review{
			Status:     enums.RequestStatusDenied,
			ReviewerID: actor.UserID,
			AdminNotes: trimmedPtr(adminNotes),
			At:         s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deny request")
		}
		if rows == 0 {
			return s.transitionError(ctx, repo, id, "deny")
		}
		result, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logReview(ctx, actor, result, "request.denied")
	return result, nil
}

func (s *service) logReview(ctx context.Context, actor auth.Actor, req *RequestDTO, msg string) {
	if s.logg == nil || req == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"parking_request_id": req.ID.String(),
		"reviewer_id":        actor.UserID.String(),
		"coins_awarded":      req.CoinsAwarded,
	})
	s.logg.Info(logCtx, msg)
}

func (s *service) ListPending(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[RequestDTO], error) {
	if !actor.IsAdmin() {
		return pagination.Page[RequestDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	status := enums.RequestStatusPending
	return s.list(ctx, ListFilter{Status: &status}, params)
}

func (s *service) ListApproved(ctx context.Context, params pagination.Params) (pagination.Page[RequestDTO], error) {
	status := enums.RequestStatusApproved
	return s.list(ctx, ListFilter{Status: &status}, params)
}

func (s *service) ListAll(ctx context.Context, actor auth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[RequestDTO], error) {
	if !actor.IsAdmin() {
		return pagination.Page[RequestDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return pagination.Page[RequestDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	return s.list(ctx, filter, params)
}

func (s *service) ListMine(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[RequestDTO], error) {
	if actor.UserID == uuid.Nil {
		return pagination.Page[RequestDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID := actor.UserID
	return s.list(ctx, ListFilter{UserID: &userID}, params)
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[RequestDTO], error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[RequestDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list requests")
	}
	return pagination.NewPage(toDTOs(rows), params, total), nil
}

func (s *service) Nearby(ctx context.Context, point types.GeographyPoint, radiusMeters float64, limit int) ([]NearbyRequestDTO, error) {
	if err := geo.ValidatePoint(point); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultSearchRadiusMeters
	}
	if radiusMeters > geo.MaxSearchRadiusMeters {
		radiusMeters = geo.MaxSearchRadiusMeters
	}
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = defaultNearbyLimit
	}
	rows, err := s.repo.Nearby(ctx, point, radiusMeters, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search nearby requests")
	}
	return toNearbyDTOs(rows), nil
}

func (s *service) Statistics(ctx context.Context, actor auth.Actor) (*StatisticsDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}

	stats := &StatisticsDTO{ByStatus: map[string]int64{}, ByType: map[string]int64{}}
	for _, status := range []enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusApproved, enums.RequestStatusDenied} {
		stats.ByStatus[string(status)] = 0
	}
	for _, kind := range []enums.RequestType{enums.RequestTypeNewParkingSite, enums.RequestTypeNoParkingZone} {
		stats.ByType[string(kind)] = 0
	}

	byStatus, err := s.repo.CountBy(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count requests by status")
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Bucket] = row.Total
		stats.Total += row.Total
	}

	byType, err := s.repo.CountBy(ctx, "request_type")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count requests by type")
	}
	for _, row := range byType {
		stats.ByType[row.Bucket] = row.Total
	}

	stats.TotalCoinsAwarded, err = s.repo.SumCoinsAwarded(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum coins awarded")
	}
	return stats, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*RequestDTO, error) {
	req, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload request")
	}
	dto := FromModel(*req)
	return &dto, nil
}

// transitionError explains why a conditional write touched no rows.
func (s *service) transitionError(ctx context.Context, repo Repository, id uuid.UUID, action string) error {
	current, err := repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err)
	}
	return invalidTransition(current.Status, action)
}

func invalidTransition(status enums.RequestStatus, action string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot %s a request that is %s", action, status)).
		WithDetails(map[string]any{"status": status})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load request")
}

func checkText(invalid map[string]string, field, value string, max int) {
	if value == "" {
		invalid[field] = "is required"
	} else if len(value) > max {
		invalid[field] = fmt.Sprintf("must be at most %d characters", max)
	}
}

func cleanImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, img := range in {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
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
