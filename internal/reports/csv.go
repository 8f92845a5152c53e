package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

// Export report types.
const (
	ReportAging    = "aging"
	ReportRanking  = "ranking"
	ReportSummary  = "summary"
	ReportMonthly  = "monthly"
	ReportPartners = "partners"
)

const csvContentType = "text/csv; charset=utf-8"

// ExportFilename is deterministic for a report type and day.
func ExportFilename(reportType, isoDate string) string {
	return fmt.Sprintf("%s_%s.csv", reportType, isoDate)
}

func (s *service) ExportCSV(ctx context.Context, actor access.Actor, reportType string) (*Export, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	reportType = strings.ToLower(strings.TrimSpace(reportType))

	var records [][]string
	switch reportType {
	case ReportAging:
		report, err := s.AgingReport(ctx, actor)
		if err != nil {
			return nil, err
		}
		records = agingRecords(report)
	case ReportRanking:
		entries, err := s.ConversionRanking(ctx, actor, MaxRankingLimit)
		if err != nil {
			return nil, err
		}
		records = rankingRecords(entries)
	case ReportSummary:
		summary, err := s.CommissionSummary(ctx, actor, SummaryParams{})
		if err != nil {
			return nil, err
		}
		records = summaryRecords(summary)
	case ReportMonthly:
		points, err := s.MonthlyEvolution(ctx, actor, 0)
		if err != nil {
			return nil, err
		}
		records = monthlyRecords(points)
	case ReportPartners:
		rows, err := s.CommissionsByPartner(ctx, actor, nil)
		if err != nil {
			return nil, err
		}
		records = partnerRecords(rows)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported report type").
			WithDetails(map[string]any{"type": reportType})
	}

	body, err := renderCSV(records)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render csv")
	}
	return &Export{
		Filename:    ExportFilename(reportType, s.now().UTC().Format("2006-01-02")),
		ContentType: csvContentType,
		Body:        body,
	}, nil
}

// renderCSV writes RFC 4180 records; fields holding commas, quotes or line
// breaks are quoted by the encoder.
func renderCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func agingRecords(report *AgingReport) [][]string {
	records := [][]string{{"bucket", "count"}}
	for _, bucket := range report.Buckets {
		records = append(records, []string{bucket.Label, itoa(bucket.Count)})
	}
	return append(records, []string{"total", itoa(report.Total)})
}

func rankingRecords(entries []RankingEntry) [][]string {
	records := [][]string{{"partner_id", "partner_name", "total_referrals", "won_count", "conversion_rate"}}
	for _, e := range entries {
		records = append(records, []string{
			e.PartnerID.String(),
			e.PartnerName,
			itoa(e.TotalReferrals),
			itoa(e.WonCount),
			formatRate(e.ConversionRate),
		})
	}
	return records
}

func summaryRecords(s *CommissionSummary) [][]string {
	return [][]string{
		{"total_referrals", "won_count", "lost_count", "in_progress_count", "expected_commission_cents", "realized_commission_cents", "conversion_rate"},
		{
			itoa(s.TotalReferrals),
			itoa(s.WonCount),
			itoa(s.LostCount),
			itoa(s.InProgressCount),
			itoa(s.ExpectedCommissionCents),
			itoa(s.RealizedCommissionCents),
			formatRate(s.ConversionRate),
		},
	}
}

func monthlyRecords(points []MonthlyPoint) [][]string {
	records := [][]string{{"month", "referrals", "won_count", "expected_commission_cents", "realized_commission_cents"}}
	for _, p := range points {
		records = append(records, []string{
			p.Month,
			itoa(p.Referrals),
			itoa(p.WonCount),
			itoa(p.ExpectedCommissionCents),
			itoa(p.RealizedCommissionCents),
		})
	}
	return records
}

func partnerRecords(rows []PartnerCommission) [][]string {
	records := [][]string{{"partner_id", "partner_name", "total_referrals", "won_count", "expected_commission_cents", "realized_commission_cents"}}
	for _, r := range rows {
		records = append(records, []string{
			r.PartnerID.String(),
			r.PartnerName,
			itoa(r.TotalReferrals),
			itoa(r.WonCount),
			itoa(r.ExpectedCommissionCents),
			itoa(r.RealizedCommissionCents),
		})
	}
	return records
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
