package referrals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// ErrNotFound is returned when a referral or coupon lookup misses.
var ErrNotFound = errors.New("record not found")

// Repository persists referrals. Status changes go through UpdateGuarded.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, referral *models.Referral) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Referral, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, expected enums.ReferralStatus, updates map[string]any) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	List(ctx context.Context, filter listFilter) ([]models.Referral, error)
	ListOpen(ctx context.Context, scope openScope) ([]models.Referral, error)
	StatusUpdateDays(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]int, error)
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a referral repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listFilter struct {
	ManagerID *uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type openScope struct {
	PartnerID *uuid.UUID
	ManagerID *uuid.UUID
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, referral *models.Referral) error {
	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

// UpdateGuarded applies updates only while the row still has the expected
// status. Zero affected rows means another transition got there first.
func (r *repositoryImpl) UpdateGuarded(ctx context.Context, id uuid.UUID, expected enums.ReferralStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) List(ctx context.Context, filter listFilter) ([]models.Referral, error) {
	query := r.db.WithContext(ctx).Model(&models.Referral{})
	if filter.ManagerID != nil {
		query = query.Where("manager_id = ?", *filter.ManagerID)
	}
	var rows []models.Referral
	if err := pagination.Apply(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListOpen(ctx context.Context, scope openScope) ([]models.Referral, error) {
	query := r.db.WithContext(ctx).Where("status IN ?", enums.OpenReferralStatuses)
	if scope.PartnerID != nil {
		query = query.Where("partner_id = ?", *scope.PartnerID)
	}
	if scope.ManagerID != nil {
		query = query.Where("manager_id = ?", *scope.ManagerID)
	}
	var rows []models.Referral
	if err := query.Order("last_status_update ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) StatusUpdateDays(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(offerIDs))
	if len(offerIDs) == 0 {
		return out, nil
	}
	var offers []models.Offer
	if err := r.db.WithContext(ctx).
		Select("id", "status_update_days").
		Where("id IN ?", offerIDs).
		Find(&offers).Error; err != nil {
		return nil, err
	}
	for _, offer := range offers {
		out[offer.ID] = offer.StatusUpdateDays
	}
	return out, nil
}

func (r *repositoryImpl) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func offerIDs(refs []models.Referral) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.OfferID]; ok {
			continue
		}
		seen[ref.OfferID] = struct{}{}
		ids = append(ids, ref.OfferID)
	}
	return ids
}
