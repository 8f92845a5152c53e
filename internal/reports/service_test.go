package reports

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

var reportNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

type reportFixture struct {
	conn  *gorm.DB
	svc   *service
	alfa  uuid.UUID
	beta  uuid.UUID
	gama  uuid.UUID
	admin access.Actor
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrateModels(conn))
	return conn
}

func seedPartner(t *testing.T, conn *gorm.DB, name string, status enums.PartnerStatus) uuid.UUID {
	t.Helper()
	partner := models.Partner{ID: uuid.New(), CompanyName: name, Status: status}
	require.NoError(t, conn.Create(&partner).Error)
	return partner.ID
}

func seedReferral(t *testing.T, conn *gorm.DB, partnerID uuid.UUID, status enums.ReferralStatus, age time.Duration, expected int64, realized *int64) {
	t.Helper()
	created := reportNow.Add(-age)
	ref := models.Referral{
		ID:                      uuid.New(),
		OfferID:                 uuid.New(),
		PartnerID:               partnerID,
		BuyerCompany:            "Buyer",
		BuyerContactName:        "Contact",
		Origin:                  enums.ReferralOriginMarketplace,
		Status:                  status,
		ExpectedValueCents:      expected * 5,
		FeePercent:              decimal.NewFromInt(20),
		ExpectedCommissionCents: expected,
		RealizedCommissionCents: realized,
		LastStatusUpdate:        created,
		CreatedAt:               created,
	}
	require.NoError(t, conn.Create(&ref).Error)
}

func cents(v int64) *int64 { return &v }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	conn := openTestDB(t)
	f := &reportFixture{
		conn:  conn,
		alfa:  seedPartner(t, conn, "Alfa, Ltda", enums.PartnerStatusApproved),
		beta:  seedPartner(t, conn, "Beta", enums.PartnerStatusApproved),
		gama:  seedPartner(t, conn, "Gama", enums.PartnerStatusApproved),
		admin: access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	}
	seedPartner(t, conn, "Pendente", enums.PartnerStatusPending)

	seedReferral(t, conn, f.alfa, enums.ReferralStatusSent, days(2), 1000, nil)
	seedReferral(t, conn, f.alfa, enums.ReferralStatusAcked, days(10), 2000, nil)
	seedReferral(t, conn, f.alfa, enums.ReferralStatusWon, days(40), 3000, cents(2500))
	seedReferral(t, conn, f.beta, enums.ReferralStatusInNegotiation, days(30), 4000, nil)
	seedReferral(t, conn, f.beta, enums.ReferralStatusLost, days(5), 500, nil)
	seedReferral(t, conn, f.beta, enums.ReferralStatusSent, days(31), 100, nil)
	seedReferral(t, conn, f.alfa, enums.ReferralStatusWon, days(3), 1000, cents(800))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return reportNow }
	return f
}

func bucketCounts(report *AgingReport) map[string]int64 {
	out := make(map[string]int64, len(report.Buckets))
	for _, b := range report.Buckets {
		out[b.Label] = b.Count
	}
	return out
}

func TestAgingReport(t *testing.T) {
	f := newReportFixture(t)

	report, err := f.svc.AgingReport(context.Background(), f.admin)
	require.NoError(t, err)
	require.Equal(t, int64(4), report.Total)
	require.Equal(t, []string{"0-7", "8-15", "16-30", "30+"}, []string{
		report.Buckets[0].Label, report.Buckets[1].Label, report.Buckets[2].Label, report.Buckets[3].Label,
	})
	require.Equal(t, map[string]int64{"0-7": 1, "8-15": 1, "16-30": 1, "30+": 1}, bucketCounts(report))

	partnerID := f.beta
	_, err = f.svc.AgingReport(context.Background(), access.Actor{UserID: uuid.New(), Role: enums.UserRolePartner, PartnerID: &partnerID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestAgingEmptyPopulation(t *testing.T) {
	report := buildAging(reportNow, nil)
	require.Equal(t, int64(0), report.Total)
	require.Len(t, report.Buckets, 4)
	for _, b := range report.Buckets {
		require.Equal(t, int64(0), b.Count)
	}
}

func TestAgingBucketBoundaries(t *testing.T) {
	cases := map[int]string{0: "0-7", 7: "0-7", 8: "8-15", 15: "8-15", 16: "16-30", 30: "16-30", 31: "30+", 400: "30+"}
	for d, want := range cases {
		if got := agingBucket(d); got != want {
			t.Fatalf("agingBucket(%d) = %s, want %s", d, got, want)
		}
	}
	if got := daysBetween(reportNow.Add(time.Hour), reportNow); got != 0 {
		t.Fatalf("future timestamps should age 0 days, got %d", got)
	}
}

func TestAgingBucketsSumToTotal(t *testing.T) {
	property := func(ages []uint16) bool {
		created := make([]time.Time, 0, len(ages))
		for _, age := range ages {
			created = append(created, reportNow.Add(-time.Duration(age)*time.Hour))
		}
		report := buildAging(reportNow, created)
		var sum int64
		for _, b := range report.Buckets {
			sum += b.Count
		}
		return len(report.Buckets) == 4 && sum == report.Total && report.Total == int64(len(ages))
	}
	if err := quick.Check(property, nil); err != nil {
		t.Fatalf("bucket sum invariant violated: %v", err)
	}
}

func TestConversionRanking(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	entries, err := f.svc.ConversionRanking(ctx, f.admin, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, f.alfa, entries[0].PartnerID)
	require.Equal(t, int64(4), entries[0].TotalReferrals)
	require.Equal(t, int64(2), entries[0].WonCount)
	require.Equal(t, 50.0, entries[0].ConversionRate)
	require.Equal(t, "Beta", entries[1].PartnerName)
	require.Equal(t, "Gama", entries[2].PartnerName)
	require.Equal(t, int64(0), entries[2].TotalReferrals)
	require.Equal(t, 0.0, entries[2].ConversionRate)
	for i := 1; i < len(entries); i++ {
		require.LessOrEqual(t, entries[i].ConversionRate, entries[i-1].ConversionRate)
	}

	top, err := f.svc.ConversionRanking(ctx, f.admin, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)

	_, err = f.svc.ConversionRanking(ctx, f.admin, 101)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestConversionRateRange(t *testing.T) {
	property := func(won, extra uint16) bool {
		total := int64(won) + int64(extra)
		rate := conversionRate(int64(won), total)
		return rate >= 0 && rate <= 100
	}
	if err := quick.Check(property, nil); err != nil {
		t.Fatalf("rate out of range: %v", err)
	}
	require.Equal(t, 33.33, conversionRate(1, 3))
	require.Equal(t, 0.0, conversionRate(0, 0))
}

func TestCommissionSummary(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	all, err := f.svc.CommissionSummary(ctx, f.admin, SummaryParams{})
	require.NoError(t, err)
	require.Equal(t, int64(7), all.TotalReferrals)
	require.Equal(t, int64(2), all.WonCount)
	require.Equal(t, int64(1), all.LostCount)
	require.Equal(t, int64(4), all.InProgressCount)
	require.Equal(t, int64(11600), all.ExpectedCommissionCents)
	require.Equal(t, int64(3300), all.RealizedCommissionCents)
	require.Equal(t, 28.57, all.ConversionRate)

	from := reportNow.Add(-days(7))
	to := reportNow
	week, err := f.svc.CommissionSummary(ctx, f.admin, SummaryParams{From: &from, To: &to})
	require.NoError(t, err)
	require.Equal(t, int64(3), week.TotalReferrals)
	require.Equal(t, int64(1), week.WonCount)
	require.Equal(t, int64(1), week.LostCount)
	require.Equal(t, int64(1), week.InProgressCount)
	require.Equal(t, int64(2500), week.ExpectedCommissionCents)
	require.Equal(t, int64(800), week.RealizedCommissionCents)

	_, err = f.svc.CommissionSummary(ctx, f.admin, SummaryParams{From: &to, To: &from})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCommissionsByPartner(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	rows, err := f.svc.CommissionsByPartner(ctx, f.admin, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, f.alfa, rows[0].PartnerID)
	require.Equal(t, "Alfa, Ltda", rows[0].PartnerName)
	require.Equal(t, int64(7000), rows[0].ExpectedCommissionCents)
	require.Equal(t, int64(3300), rows[0].RealizedCommissionCents)
	require.Equal(t, int64(4600), rows[1].ExpectedCommissionCents)
	require.Equal(t, int64(0), rows[1].RealizedCommissionCents)

	betaID := f.beta
	partner := access.Actor{UserID: uuid.New(), Role: enums.UserRolePartner, PartnerID: &betaID}
	own, err := f.svc.CommissionsByPartner(ctx, partner, nil)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, f.beta, own[0].PartnerID)

	alfaID := f.alfa
	_, err = f.svc.CommissionsByPartner(ctx, partner, &alfaID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	require.NoError(t, f.conn.Delete(&models.Partner{}, "id = ?", f.alfa).Error)
	filtered, err := f.svc.CommissionsByPartner(ctx, f.admin, &alfaID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "Alfa, Ltda", filtered[0].PartnerName)
}

func TestMonthlyEvolution(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	points, err := f.svc.MonthlyEvolution(ctx, f.admin, 3)
	require.NoError(t, err)
	require.Equal(t, []MonthlyPoint{
		{Month: "2026-03"},
		{Month: "2026-04", Referrals: 3, WonCount: 1, ExpectedCommissionCents: 7100, RealizedCommissionCents: 2500},
		{Month: "2026-05", Referrals: 4, WonCount: 1, ExpectedCommissionCents: 4500, RealizedCommissionCents: 800},
	}, points)

	defaults, err := f.svc.MonthlyEvolution(ctx, f.admin, 0)
	require.NoError(t, err)
	require.Len(t, defaults, DefaultMonths)
	require.Equal(t, "2025-12", defaults[0].Month)

	_, err = f.svc.MonthlyEvolution(ctx, f.admin, MaxMonths+1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestExportCSV(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	export, err := f.svc.ExportCSV(ctx, f.admin, "Ranking")
	require.NoError(t, err)
	require.Equal(t, "ranking_2026-05-20.csv", export.Filename)
	require.Equal(t, "text/csv; charset=utf-8", export.ContentType)
	lines := strings.Split(strings.TrimSpace(string(export.Body)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "partner_id,partner_name,total_referrals,won_count,conversion_rate", lines[0])
	require.Equal(t, f.alfa.String()+`,"Alfa, Ltda",4,2,50.00`, lines[1])

	aging, err := f.svc.ExportCSV(ctx, f.admin, ReportAging)
	require.NoError(t, err)
	require.Equal(t, "bucket,count\n0-7,1\n8-15,1\n16-30,1\n30+,1\ntotal,4\n", string(aging.Body))

	for _, reportType := range []string{ReportSummary, ReportMonthly, ReportPartners} {
		out, err := f.svc.ExportCSV(ctx, f.admin, reportType)
		require.NoError(t, err, reportType)
		require.Equal(t, reportType+"_2026-05-20.csv", out.Filename)
	}

	_, err = f.svc.ExportCSV(ctx, f.admin, "pivot")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
