package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon discounts a won deal either by percentage or by a fixed amount.
type Coupon struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code           string           `gorm:"column:code;not null;uniqueIndex" json:"code"`
	PercentOff     *decimal.Decimal `gorm:"column:percent_off;type:numeric(5,2)" json:"percentOff,omitempty"`
	AmountOffCents *int64           `gorm:"column:amount_off_cents" json:"amountOffCents,omitempty"`
	Active         bool             `gorm:"column:active;not null" json:"active"`
	ExpiresAt      *time.Time       `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"createdAt"`
}

// Usable reports whether the coupon may still be redeemed at now.
func (c Coupon) Usable(now time.Time) bool {
	if !c.Active {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}
