package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// LicenseNotification records that a threshold notice was delivered for a given
// expiry date. Rows are insert-only; the (entity_id, threshold,
// license_expiry_date) triple is unique.
type LicenseNotification struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EntityType        enums.LicenseHolder    `gorm:"column:entity_type;not null"`
	EntityID          uuid.UUID              `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:uq_license_notification,priority:1"`
	Threshold         enums.LicenseThreshold `gorm:"column:threshold;type:license_threshold;not null;uniqueIndex:uq_license_notification,priority:2"`
	LicenseExpiryDate time.Time              `gorm:"column:license_expiry_date;not null;uniqueIndex:uq_license_notification,priority:3"`
	SentAt            time.Time              `gorm:"column:sent_at;not null"`
}
