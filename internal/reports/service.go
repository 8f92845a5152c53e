// Package reports derives read-only dashboards and CSV exports from the
// referral ledger. Nothing here writes.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
	DefaultMonths       = 6
	MaxMonths           = 24
)

// Service exposes the dashboard and commission reports.
type Service interface {
	AgingReport(ctx context.Context, actor access.Actor) (*AgingReport, error)
	ConversionRanking(ctx context.Context, actor access.Actor, limit int) ([]RankingEntry, error)
	CommissionSummary(ctx context.Context, actor access.Actor, params SummaryParams) (*CommissionSummary, error)
	CommissionsByPartner(ctx context.Context, actor access.Actor, partnerID *uuid.UUID) ([]PartnerCommission, error)
	MonthlyEvolution(ctx context.Context, actor access.Actor, months int) ([]MonthlyPoint, error)
	ExportCSV(ctx context.Context, actor access.Actor, reportType string) (*Export, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService returns a report service reading through repo.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) AgingReport(ctx context.Context, actor access.Actor) (*AgingReport, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	created, err := s.repo.OpenCreatedAt(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open referrals")
	}
	now := s.now().UTC()
	return buildAging(now, created), nil
}

func buildAging(now time.Time, created []time.Time) *AgingReport {
	counts := make(map[string]int64, len(agingBuckets))
	for _, at := range created {
		counts[agingBucket(daysBetween(at, now))]++
	}
	report := &AgingReport{
		Buckets:     make([]AgingBucket, 0, len(agingBuckets)),
		Total:       int64(len(created)),
		GeneratedAt: now,
	}
	for _, label := range agingBuckets {
		report.Buckets = append(report.Buckets, AgingBucket{Label: label, Count: counts[label]})
	}
	return report
}

// agingBucket places an age in days. Day 30 still belongs to 16-30; future
// timestamps count as day 0.
func agingBucket(days int) string {
	switch {
	case days <= 7:
		return Bucket0To7
	case days <= 15:
		return Bucket8To15
	case days <= 30:
		return Bucket16To30
	default:
		return BucketOver30
	}
}

func daysBetween(from, to time.Time) int {
	elapsed := to.Sub(from)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

func (s *service) ConversionRanking(ctx context.Context, actor access.Actor, limit int) ([]RankingEntry, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	limit, err := boundedInt(limit, DefaultRankingLimit, MaxRankingLimit, "limit")
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.TotalsByPartner(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate referrals by partner")
	}
	partners, err := s.repo.ApprovedPartners(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partners")
	}

	byPartner := make(map[uuid.UUID]partnerTotals, len(totals))
	for _, row := range totals {
		byPartner[row.PartnerID] = row
	}
	entries := make([]RankingEntry, 0, len(partners))
	for _, partner := range partners {
		row := byPartner[partner.ID]
		entries = append(entries, RankingEntry{
			PartnerID:      partner.ID,
			PartnerName:    partner.CompanyName,
			TotalReferrals: row.Total,
			WonCount:       row.Won,
			ConversionRate: conversionRate(row.Won, row.Total),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ConversionRate != b.ConversionRate {
			return a.ConversionRate > b.ConversionRate
		}
		if a.WonCount != b.WonCount {
			return a.WonCount > b.WonCount
		}
		return a.PartnerName < b.PartnerName
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// conversionRate returns won/total×100 rounded to two places, 0 for an
// empty population.
func conversionRate(won, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(won).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).
		InexactFloat64()
}

func (s *service) CommissionSummary(ctx context.Context, actor access.Actor, params SummaryParams) (*CommissionSummary, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	totals, err := s.repo.Summary(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate commissions")
	}
	return &CommissionSummary{
		From:                    params.From,
		To:                      params.To,
		TotalReferrals:          totals.Total,
		WonCount:                totals.Won,
		LostCount:               totals.Lost,
		InProgressCount:         totals.Total - totals.Won - totals.Lost,
		ExpectedCommissionCents: totals.ExpectedCents,
		RealizedCommissionCents: totals.RealizedCents,
		ConversionRate:          conversionRate(totals.Won, totals.Total),
	}, nil
}

// CommissionsByPartner lists commission positions. Partners are pinned to
// their own row regardless of the requested partner.
func (s *service) CommissionsByPartner(ctx context.Context, actor access.Actor, partnerID *uuid.UUID) ([]PartnerCommission, error) {
	if err := access.Require(actor, access.StaffOrPartners...); err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRolePartner {
		if actor.PartnerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner scope missing")
		}
		if partnerID != nil && *partnerID != *actor.PartnerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "partners can only read their own commissions")
		}
		partnerID = actor.PartnerID
	}

	totals, err := s.repo.TotalsByPartner(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate commissions by partner")
	}
	ids := make([]uuid.UUID, 0, len(totals))
	for _, row := range totals {
		ids = append(ids, row.PartnerID)
	}
	names, err := s.repo.PartnerNames(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner names")
	}

	out := make([]PartnerCommission, 0, len(totals))
	for _, row := range totals {
		out = append(out, PartnerCommission{
			PartnerID:               row.PartnerID,
			PartnerName:             names[row.PartnerID],
			TotalReferrals:          row.Total,
			WonCount:                row.Won,
			ExpectedCommissionCents: row.ExpectedCents,
			RealizedCommissionCents: row.RealizedCents,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RealizedCommissionCents != out[j].RealizedCommissionCents {
			return out[i].RealizedCommissionCents > out[j].RealizedCommissionCents
		}
		return out[i].PartnerName < out[j].PartnerName
	})
	return out, nil
}

// MonthlyEvolution buckets referrals by creation month over the trailing
// window ending with the current month. Months without activity are zero.
func (s *service) MonthlyEvolution(ctx context.Context, actor access.Actor, months int) ([]MonthlyPoint, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	months, err := boundedInt(months, DefaultMonths, MaxMonths, "months")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	facts, err := s.repo.CreatedSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referrals for monthly evolution")
	}

	points := make([]MonthlyPoint, months)
	index := make(map[string]int, months)
	for i := range points {
		label := start.AddDate(0, i, 0).Format(monthLayout)
		points[i].Month = label
		index[label] = i
	}
	for _, fact := range facts {
		i, ok := index[fact.CreatedAt.UTC().Format(monthLayout)]
		if !ok {
			continue
		}
		points[i].Referrals++
		points[i].ExpectedCommissionCents += fact.ExpectedCommissionCents
		if fact.Status == enums.ReferralStatusWon {
			points[i].WonCount++
		}
		if fact.RealizedCommissionCents != nil {
			points[i].RealizedCommissionCents += *fact.RealizedCommissionCents
		}
	}
	return points, nil
}

const monthLayout = "2006-01"

// boundedInt applies the default for zero and rejects values outside
// [1, max].
func boundedInt(value, def, max int, name string) (int, error) {
	if value == 0 {
		return def, nil
	}
	if value < 0 || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between 1 and %d", name, max)).
			WithDetails(map[string]any{name: value})
	}
	return value, nil
}
