package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Offer is a partner's sellable subscription. Referrals copy its fee and SLA
// parameters but never own them.
type Offer struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PartnerID         uuid.UUID         `gorm:"column:partner_id;type:uuid;not null" json:"partnerId"`
	Name              string            `gorm:"column:name;not null" json:"name"`
	Status            enums.OfferStatus `gorm:"column:status;type:offer_status;not null" json:"status"`
	SuccessFeePercent decimal.Decimal   `gorm:"column:success_fee_percent;type:numeric(5,2);not null" json:"successFeePercent"`
	PartnerAckHours   int               `gorm:"column:partner_ack_hours;not null" json:"partnerAckHours"`
	StatusUpdateDays  int               `gorm:"column:status_update_days;not null" json:"statusUpdateDays"`
	CreatedAt         time.Time         `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updatedAt"`
}
