package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

const (
	partnerTotalsSQL = `partner_id,
COUNT(*) AS total,
SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS won,
COALESCE(SUM(expected_commission_cents), 0) AS expected_cents,
COALESCE(SUM(realized_commission_cents), 0) AS realized_cents`

	summarySQL = `COUNT(*) AS total,
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS won,
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS lost,
COALESCE(SUM(expected_commission_cents), 0) AS expected_cents,
COALESCE(SUM(realized_commission_cents), 0) AS realized_cents`
)

// partnerTotals is one GROUP BY partner_id row.
type partnerTotals struct {
	PartnerID     uuid.UUID
	Total         int64
	Won           int64
	ExpectedCents int64
	RealizedCents int64
}

type summaryTotals struct {
	Total         int64
	Won           int64
	Lost          int64
	ExpectedCents int64
	RealizedCents int64
}

// referralFacts is the projection the in-process bucketing needs.
type referralFacts struct {
	CreatedAt               time.Time
	Status                  enums.ReferralStatus
	ExpectedCommissionCents int64
	RealizedCommissionCents *int64
}

type partnerName struct {
	ID          uuid.UUID
	CompanyName string
}

// Repository runs read-only aggregate queries against the ledger.
type Repository interface {
	OpenCreatedAt(ctx context.Context) ([]time.Time, error)
	TotalsByPartner(ctx context.Context, partnerID *uuid.UUID) ([]partnerTotals, error)
	Summary(ctx context.Context, params SummaryParams) (summaryTotals, error)
	CreatedSince(ctx context.Context, since time.Time) ([]referralFacts, error)
	ApprovedPartners(ctx context.Context) ([]partnerName, error)
	PartnerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds report queries to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) OpenCreatedAt(ctx context.Context) ([]time.Time, error) {
	var out []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("status IN ?", enums.OpenReferralStatuses).
		Pluck("created_at", &out).Error
	return out, err
}

func (r *repository) TotalsByPartner(ctx context.Context, partnerID *uuid.UUID) ([]partnerTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select(partnerTotalsSQL, enums.ReferralStatusWon)
	if partnerID != nil {
		query = query.Where("partner_id = ?", *partnerID)
	}
	var rows []partnerTotals
	err := query.Group("partner_id").Scan(&rows).Error
	return rows, err
}

func (r *repository) Summary(ctx context.Context, params SummaryParams) (summaryTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select(summarySQL, enums.ReferralStatusWon, enums.ReferralStatusLost)
	if params.From != nil {
		query = query.Where("created_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("created_at < ?", params.To.UTC())
	}
	var out summaryTotals
	err := query.Scan(&out).Error
	return out, err
}

func (r *repository) CreatedSince(ctx context.Context, since time.Time) ([]referralFacts, error) {
	var rows []referralFacts
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select("created_at", "status", "expected_commission_cents", "realized_commission_cents").
		Where("created_at >= ?", since.UTC()).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ApprovedPartners(ctx context.Context) ([]partnerName, error) {
	var rows []partnerName
	err := r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Select("id", "company_name").
		Where("status = ?", enums.PartnerStatusApproved).
		Scan(&rows).Error
	return rows, err
}

// PartnerNames resolves names including soft-deleted partners so historic
// referrals keep a label.
func (r *repository) PartnerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []partnerName
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Partner{}).
		Select("id", "company_name").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.CompanyName
	}
	return out, nil
}
