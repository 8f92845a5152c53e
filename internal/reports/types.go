package reports

import (
	"time"

	"github.com/google/uuid"
)

// Aging bucket labels, in display order.
const (
	Bucket0To7   = "0-7"
	Bucket8To15  = "8-15"
	Bucket16To30 = "16-30"
	BucketOver30 = "30+"
)

var agingBuckets = []string{Bucket0To7, Bucket8To15, Bucket16To30, BucketOver30}

// AgingBucket counts open referrals whose age falls in Label.
type AgingBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AgingReport partitions open referrals by days since creation. The bucket
// counts always sum to Total.
type AgingReport struct {
	Buckets     []AgingBucket `json:"buckets"`
	Total       int64         `json:"total"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// RankingEntry is one partner's conversion performance.
type RankingEntry struct {
	PartnerID      uuid.UUID `json:"partnerId"`
	PartnerName    string    `json:"partnerName"`
	TotalReferrals int64     `json:"totalReferrals"`
	WonCount       int64     `json:"wonCount"`
	ConversionRate float64   `json:"conversionRate"`
}

// SummaryParams bounds the commission summary by referral creation time.
// From is inclusive, To exclusive; either may be nil.
type SummaryParams struct {
	From *time.Time
	To   *time.Time
}

// CommissionSummary aggregates commissions over a date range.
type CommissionSummary struct {
	From                    *time.Time `json:"from,omitempty"`
	To                      *time.Time `json:"to,omitempty"`
	TotalReferrals          int64      `json:"totalReferrals"`
	WonCount                int64      `json:"wonCount"`
	LostCount               int64      `json:"lostCount"`
	InProgressCount         int64      `json:"inProgressCount"`
	ExpectedCommissionCents int64      `json:"expectedCommissionCents"`
	RealizedCommissionCents int64      `json:"realizedCommissionCents"`
	ConversionRate          float64    `json:"conversionRate"`
}

// PartnerCommission is the commission position of one partner.
type PartnerCommission struct {
	PartnerID               uuid.UUID `json:"partnerId"`
	PartnerName             string    `json:"partnerName"`
	TotalReferrals          int64     `json:"totalReferrals"`
	WonCount                int64     `json:"wonCount"`
	ExpectedCommissionCents int64     `json:"expectedCommissionCents"`
	RealizedCommissionCents int64     `json:"realizedCommissionCents"`
}

// MonthlyPoint is one calendar month of referral activity.
type MonthlyPoint struct {
	Month                   string `json:"month"`
	Referrals               int64  `json:"referrals"`
	WonCount                int64  `json:"wonCount"`
	ExpectedCommissionCents int64  `json:"expectedCommissionCents"`
	RealizedCommissionCents int64  `json:"realizedCommissionCents"`
}

// Export is a rendered CSV report.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}
