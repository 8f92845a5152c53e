package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// User mirrors the identity provider's account row. Only the role is mutated
// here, through the admin role-change operation.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null"`
	PartnerID *uuid.UUID     `gorm:"column:partner_id;type:uuid"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}
