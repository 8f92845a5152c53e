package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Referral is a tracked introduction of a buyer to a partner's offer. Money
// columns are integer cents; FeePercent is frozen when the row is created.
type Referral struct {
	ID                      uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OfferID                 uuid.UUID            `gorm:"column:offer_id;type:uuid;not null" json:"offerId"`
	PartnerID               uuid.UUID            `gorm:"column:partner_id;type:uuid;not null" json:"partnerId"`
	LeadRequestID           *uuid.UUID           `gorm:"column:lead_request_id;type:uuid" json:"leadRequestId,omitempty"`
	ManagerID               *uuid.UUID           `gorm:"column:manager_id;type:uuid" json:"managerId,omitempty"`
	BuyerCompany            string               `gorm:"column:buyer_company;not null" json:"buyerCompany"`
	BuyerContactName        string               `gorm:"column:buyer_contact_name;not null" json:"buyerContactName"`
	BuyerContactEmail       *string              `gorm:"column:buyer_contact_email" json:"buyerContactEmail,omitempty"`
	BuyerContactPhone       *string              `gorm:"column:buyer_contact_phone" json:"buyerContactPhone,omitempty"`
	Origin                  enums.ReferralOrigin `gorm:"column:origin;type:referral_origin;not null" json:"origin"`
	Status                  enums.ReferralStatus `gorm:"column:status;type:referral_status;not null" json:"status"`
	ExpectedValueCents      int64                `gorm:"column:expected_value_cents;not null" json:"expectedValueCents"`
	WonValueCents           *int64               `gorm:"column:won_value_cents" json:"wonValueCents,omitempty"`
	CouponID                *uuid.UUID           `gorm:"column:coupon_id;type:uuid" json:"couponId,omitempty"`
	DiscountCents           int64                `gorm:"column:discount_cents;not null;default:0" json:"discountCents"`
	FeePercent              decimal.Decimal      `gorm:"column:fee_percent;type:numeric(5,2);not null" json:"feePercent"`
	ExpectedCommissionCents int64                `gorm:"column:expected_commission_cents;not null" json:"expectedCommissionCents"`
	RealizedCommissionCents *int64               `gorm:"column:realized_commission_cents" json:"realizedCommissionCents,omitempty"`
	Notes                   string               `gorm:"column:notes;not null;default:''" json:"notes"`
	AckDeadline             *time.Time           `gorm:"column:ack_deadline" json:"ackDeadline,omitempty"`
	LastStatusUpdate        time.Time            `gorm:"column:last_status_update;not null" json:"lastStatusUpdate"`
	CreatedAt               time.Time            `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt               time.Time            `gorm:"column:updated_at" json:"updatedAt"`
}

// IsOpen reports whether the referral still awaits a WON/LOST decision.
func (r Referral) IsOpen() bool {
	return !r.Status.IsTerminal()
}
