package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Partner is a software-resale company. Deleting a partner only stamps
// DeletedAt so referral history keeps resolving.
type Partner struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyName       string              `gorm:"column:company_name;not null" json:"companyName"`
	Status            enums.PartnerStatus `gorm:"column:status;type:partner_status;not null" json:"status"`
	LicenseType       *string             `gorm:"column:license_type" json:"licenseType,omitempty"`
	LicenseExpiryDate *time.Time          `gorm:"column:license_expiry_date" json:"licenseExpiryDate,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt      `gorm:"column:deleted_at;index" json:"-"`
}
