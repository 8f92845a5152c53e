package models

import (
	"time"

	"github.com/google/uuid"
)

// Buyer is an end-customer company holding a subscription license.
type Buyer struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CompanyName       string     `gorm:"column:company_name;not null"`
	ContactEmail      *string    `gorm:"column:contact_email"`
	Active            bool       `gorm:"column:active;not null"`
	LicenseType       *string    `gorm:"column:license_type"`
	LicenseExpiryDate *time.Time `gorm:"column:license_expiry_date"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}
